// Package upload validates a spending file and stages the generated prompt as
// pending input.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/bz888/cardadvisor/internal/logger"
	"github.com/bz888/cardadvisor/internal/prompt"
)

const csvType = "text/csv"

var ErrUnsupportedFileType = errors.New("please upload a valid CSV file")

// File is one picked file with the media type it declares.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// PendingInput receives the generated prompt.
type PendingInput interface {
	SetPending(text string)
}

type Controller struct {
	input PendingInput
	log   *logger.Logger
}

func NewController(input PendingInput) *Controller {
	return &Controller{
		input: input,
		log:   logger.NewLogger("upload"),
	}
}

// HandleUpload reads file in full and stages the recommendation prompt built
// from it. It never sends; on error the pending input is left as it was.
func (c *Controller) HandleUpload(file File) error {
	if !isCSV(file.ContentType) {
		c.log.Warnf("Rejected %q with type %q", file.Name, file.ContentType)
		return fmt.Errorf("%s: %w", file.Name, ErrUnsupportedFileType)
	}

	data, err := io.ReadAll(file.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", file.Name, err)
	}

	text, err := prompt.FromCSV(string(data))
	if err != nil {
		c.log.Warnf("Rejected %q: %s", file.Name, err)
		return fmt.Errorf("%s: %w", file.Name, err)
	}

	c.input.SetPending(text)
	c.log.Infof("Staged %q as pending input", file.Name)
	return nil
}

// Open declares the media type of path from its extension and reads it. Files
// that are not CSV are rejected before anything is read.
func Open(path string) (File, error) {
	name := filepath.Base(path)
	contentType := TypeOf(name)
	if !isCSV(contentType) {
		return File{}, fmt.Errorf("%s: %w", name, ErrUnsupportedFileType)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return File{
		Name:        name,
		ContentType: contentType,
		Body:        bytes.NewReader(data),
	}, nil
}

// TypeOf returns the media type declared for name, or "" when unknown.
func TypeOf(name string) string {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, ".csv") {
		// Not every system mime table registers .csv.
		return csvType
	}
	return mime.TypeByExtension(ext)
}

func isCSV(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == csvType
}
