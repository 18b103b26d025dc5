package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/trezcool/academy/core/catalog"
)

func (cli *commandLine) importCSV(path string, importFn func(context.Context, io.Reader) (catalog.ImportResult, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := importFn(context.Background(), f)
	if err != nil {
		return err
	}

	out := cli.output()
	fmt.Fprintf(out, "%d row(s) imported\n", res.Created)
	for _, rowErr := range res.Errors {
		for col, msg := range rowErr.Errors {
			fmt.Fprintf(out, "row %d: %s: %s\n", rowErr.Row, col, msg)
		}
	}
	return nil
}

func (cli *commandLine) export(path string, exportFn func(context.Context, io.Writer) error) error {
	if path == "" {
		return exportFn(context.Background(), cli.output())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exportFn(context.Background(), f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
