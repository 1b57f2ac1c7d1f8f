// Package extraction turns uploaded resume files into plain text and splits that text
// into the parts the matcher embeds separately.
package extraction

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type, use PDF, DOCX or TXT")
	ErrEmptyText         = errors.New("no text could be extracted from the file")
	ErrTooLarge          = errors.New("file is too large")
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "txt"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// DetectFormat picks the format from the file extension, falling back to the MIME type.
func DetectFormat(fileName, mime string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".txt", ".text":
		return FormatText, nil
	}

	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}

	switch mime {
	case mimePDF:
		return FormatPDF, nil
	case mimeDOCX:
		return FormatDOCX, nil
	case mimeText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, displayName(fileName, mime))
	}
}

func displayName(fileName, mime string) string {
	if fileName != "" {
		return fileName
	}
	if mime != "" {
		return mime
	}
	return "unknown"
}

// ExtractText returns the raw text of a resume file.
func ExtractText(fileName, mime string, data []byte) (string, error) {
	format, err := DetectFormat(fileName, mime)
	if err != nil {
		return "", err
	}

	var text string
	switch format {
	case FormatPDF:
		text, err = extractPDFText(bytes.NewReader(data))
	case FormatDOCX:
		text, err = extractDocxText(bytes.NewReader(data))
	default:
		text = string(data)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

func extractPDFText(reader *bytes.Reader) (string, error) {
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}
	return textBuilder.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTag           = regexp.MustCompile(`<[^>]*>`)
)

func extractDocxText(reader *bytes.Reader) (string, error) {
	doc, err := docx.ReadDocxFromMemory(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return docxXMLToText(doc.Editable().GetContent()), nil
}

// docxXMLToText strips the WordprocessingML markup, keeping paragraph breaks.
func docxXMLToText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

var (
	whitespace  = regexp.MustCompile(`\s+`)
	nonTextChar = regexp.MustCompile(`[^\w\s.,!?-]`)
)

// CleanText collapses whitespace and drops characters other than word characters and
// basic punctuation.
func CleanText(text string) string {
	text = whitespace.ReplaceAllString(text, " ")
	text = nonTextChar.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ReadAll is ExtractText over a reader with an upper bound on the size.
func ReadAll(fileName, mime string, r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		limit = 10 << 20
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", displayName(fileName, mime), err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%s is larger than %d bytes: %w", displayName(fileName, mime), limit, ErrTooLarge)
	}

	return ExtractText(fileName, mime, data)
}
