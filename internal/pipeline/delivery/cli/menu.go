package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/service"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
)

const (
	optionExit    = 0
	optionAll     = 1
	optionKeyword = 2

	maxTitleWidth = 60
)

const greeting = `Hello! To view our interactive graph, input one of the numbers below:
ALL article polarities: '1'
Filtered by keyword: '2'
EXIT viewing: '0'
`

const keywordHint = `You chose to filter by keyword.
Example keywords include topic (ex. vaccine, travel, lockdown)
or locations (ex. Toronto, Vancouver, Alberta)
or publications (ex. National Post, Montreal Gazette, Toronto Sun)
`

// Menu is the interactive explore shell: it reads menu selections from in, prints the matching
// articles to out and writes a chart for each selection.
type Menu struct {
	explore  service.ExploreService
	articles []entity.Article
	chartDir string
	in       *bufio.Scanner
	out      io.Writer
	logger   *logger.Logger
}

// NewMenu creates a new Menu over already loaded articles.
func NewMenu(explore service.ExploreService, articles []entity.Article, chartDir string, in io.Reader, out io.Writer, log *logger.Logger) *Menu {
	return &Menu{
		explore:  explore,
		articles: articles,
		chartDir: chartDir,
		in:       bufio.NewScanner(in),
		out:      out,
		logger:   log,
	}
}

// Run loops until the user selects exit, the input ends or ctx is done. Anything other than a
// listed number re-prompts.
func (m *Menu) Run(ctx context.Context) error {
	fmt.Fprint(m.out, greeting)
	for {
		if !utils.ShouldContinue(ctx, m.logger) {
			return ctx.Err()
		}
		line, ok := m.prompt("Type number: ")
		if !ok {
			break
		}

		option, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(m.out, "Invalid input!")
			continue
		}
		switch option {
		case optionExit:
			fmt.Fprintln(m.out, "Thank you for viewing!")
			return nil
		case optionAll:
			m.show("")
		case optionKeyword:
			fmt.Fprint(m.out, keywordHint)
			keyword, ok := m.prompt("Type keyword: ")
			if !ok {
				return m.in.Err()
			}
			m.show(keyword)
		default:
			fmt.Fprintln(m.out, "Invalid input!")
		}
	}
	return m.in.Err()
}

func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		fmt.Fprintln(m.out)
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) show(keyword string) {
	path, matches, err := m.explore.WriteChart(m.chartDir, m.articles, keyword)
	if err != nil {
		m.logger.Error("Failed to write chart", logger.ErrorField(err), logger.StringField("keyword", keyword))
		fmt.Fprintf(m.out, "Could not draw the chart: %v\n", err)
		return
	}

	fmt.Fprintln(m.out, service.ChartTitle(keyword))
	RenderArticles(m.out, matches)
	fmt.Fprintf(m.out, "Chart written to %s\n", path)
}

// RenderArticles prints articles as a table. Unscored articles show "-" as their polarity.
func RenderArticles(w io.Writer, articles []entity.Article) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date Published", "Polarity", "Source", "Title"})
	for _, a := range articles {
		polarity := "-"
		if a.Scored() {
			polarity = strconv.FormatFloat(a.Polarity(), 'f', 3, 64)
		}
		t.AppendRow(table.Row{
			a.DatePublished.Format("2006-01-02"),
			polarity,
			a.SourceDomain,
			runewidth.Truncate(a.Title, maxTitleWidth, "..."),
		})
	}
	t.AppendFooter(table.Row{"", "", "Matches", len(articles)})
	t.Render()
}
