package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/pkg/common"
	"golang-covid-sentiment/pkg/logger"
	"golang-covid-sentiment/pkg/utils"

	"github.com/google/renameio/v2"
)

// ArticleTableRepository reads and writes the article table file.
type ArticleTableRepository interface {
	// Read returns the rows of the table at path in file order.
	Read(ctx context.Context, path string) ([]dto.RawArticle, error)
	// Write replaces the table at path atomically; readers see the old file or the new one.
	Write(ctx context.Context, path string, articles []entity.Article) error
}

// NewArticleCSVRepository creates a new instance of ArticleTableRepository backed by CSV files.
func NewArticleCSVRepository(log *logger.Logger) ArticleTableRepository {
	return &articleCSVRepository{logger: log}
}

type articleCSVRepository struct {
	logger *logger.Logger
}

func (r *articleCSVRepository) Read(ctx context.Context, path string) ([]dto.RawArticle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &entity.PersistenceError{Op: "open table", Path: path, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, &entity.PersistenceError{Op: "read table header", Path: path, Err: err}
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, &entity.PersistenceError{Op: "read table header", Path: path, Err: err}
	}

	var rows []dto.RawArticle
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &entity.PersistenceError{Op: "read table row", Path: path, Err: err}
		}

		get := func(column string) string { return record[index[column]] }
		row := dto.RawArticle{
			Title:        get(common.ColumnTitle),
			URL:          get(common.ColumnURL),
			SourceDomain: get(common.ColumnSourceDomain),
			Description:  get(common.ColumnDescription),
			AuthorsRaw:   get(common.ColumnAuthors),
			DatePublish:  get(common.ColumnDatePublish),
			MainText:     get(common.ColumnMainText),
		}
		polarity, err := parsePolarity(get(common.ColumnAverageSentencePolarity))
		if err != nil {
			r.logger.Warn("Invalid polarity cell, treating row as unscored",
				logger.StringField("path", path),
				logger.IntField("line", line),
				logger.ErrorField(err),
			)
		}
		row.Polarity = polarity
		rows = append(rows, row)
	}

	r.logger.Info("Loaded article table", logger.StringField("path", path), logger.IntField("rows", len(rows)))
	return rows, nil
}

func (r *articleCSVRepository) Write(ctx context.Context, path string, articles []entity.Article) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &entity.PersistenceError{Op: "create table directory", Path: dir, Err: err}
		}
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return &entity.PersistenceError{Op: "create table", Path: path, Err: err}
	}
	defer pending.Cleanup()

	writer := csv.NewWriter(pending)
	if err := writer.Write(common.TableHeader); err != nil {
		return &entity.PersistenceError{Op: "write table header", Path: path, Err: err}
	}
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(articleRow(a)); err != nil {
			return &entity.PersistenceError{Op: "write table row", Path: path, Err: err}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return &entity.PersistenceError{Op: "flush table", Path: path, Err: err}
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return &entity.PersistenceError{Op: "replace table", Path: path, Err: err}
	}
	r.logger.Info("Wrote article table", logger.StringField("path", path), logger.IntField("rows", len(articles)))
	return nil
}

func articleRow(a entity.Article) []string {
	polarity := ""
	if a.Scored() {
		polarity = strconv.FormatFloat(*a.AverageSentencePolarity, 'f', -1, 64)
	}
	return []string{
		a.Title,
		a.URL,
		a.SourceDomain,
		a.Description,
		entity.FormatAuthors(a.Authors),
		utils.FormatDate(a.DatePublished),
		polarity,
		a.MainText,
	}
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, column := range common.TableHeader {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

// parsePolarity reads a polarity cell. An empty cell is unscored.
func parsePolarity(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, &entity.ParseError{Field: common.ColumnAverageSentencePolarity, Value: cell, Err: err}
	}
	if math.IsNaN(v) || v < -1 || v > 1 {
		return nil, &entity.ParseError{Field: common.ColumnAverageSentencePolarity, Value: cell, Err: fmt.Errorf("out of range")}
	}
	return &v, nil
}
