package repository

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang-covid-sentiment/internal/entity"
)

// ReadLinks reads a newline-delimited list of links. Blank lines and lines starting with '#'
// are ignored.
func ReadLinks(r io.Reader) ([]string, error) {
	var links []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	return links, nil
}

// ReadLinksFile opens path and reads it with ReadLinks.
func ReadLinksFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &entity.PersistenceError{Op: "read links", Path: path, Err: err}
	}
	defer f.Close()

	links, err := ReadLinks(f)
	if err != nil {
		return nil, &entity.PersistenceError{Op: "read links", Path: path, Err: err}
	}
	return links, nil
}
