package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	return nil
}

// reviewLabel returns the review label for a category, colored when the config asks for it.
func reviewLabel(category schema.ReviewCategory, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorLabel(category)
	}
	return contract.GetPlainLabel(category)
}

// phantomLabel marks registry content that the repository cannot explain.
func phantomLabel(cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.PhantomColor.Sprint(contract.PhantomValue)
	}
	return contract.PhantomValue
}

// sectionTitle prints a heading above a table.
func sectionTitle(w io.Writer, cfg *contract.Config, emoji, title string) error {
	text := title
	if cfg.UseEmojis {
		text = emoji + " " + title
	}
	if cfg.UseColors {
		text = color.New(color.Bold).Sprint(text)
	}
	_, err := fmt.Fprintf(w, "\n%s\n", text)
	return err
}
