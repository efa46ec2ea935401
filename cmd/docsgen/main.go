// Генерация справки по API редактора в формате Markdown: коды ошибок и команды редактора.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	md "github.com/nao1215/markdown"
)

func main() {
	outputMd := flag.String("out", "api_errors.md", "Path to output md")
	flag.Parse()

	slog.Info("Generate api docs", "out", *outputMd)

	f, err := os.Create(*outputMd)
	if err != nil {
		slog.Error("Create output file", "err", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := generate(f); err != nil {
		slog.Error("Generate docs fail", "err", err)
		os.Exit(1)
	}
	slog.Info("Docs generated")
}

func generate(w io.Writer) error {
	return md.NewMarkdown(w).
		H1("Перечень кодов ошибок").
		PlainText("Данный раздел посвящен описанию возможных ошибок от сервера редактора.").
		CustomTable(md.TableSet{
			Header: []string{"Код", "HTTP код", "Сообщение", "Сообщение на русском"},
			Rows:   errorRows(),
		}, md.TableOptions{
			AutoWrapText: false,
		}).
		H2("Команды редактора").
		PlainText("Команды выполняются запросом POST /api/editor/sessions/{id}/commands/.").
		BulletList(commandNames()...).
		Build()
}

func errorRows() [][]string {
	var rows [][]string
	for _, e := range apierrors.All() {
		rows = append(rows, []string{
			md.Bold(strconv.Itoa(e.Code)),
			fmt.Sprintf("%d %s", e.StatusCode, md.Italic(http.StatusText(e.StatusCode))),
			md.Code(e.Err),
			md.Code(e.RuErr),
		})
	}
	return rows
}

func commandNames() []string {
	var names []string
	for _, c := range commands.Builtins() {
		names = append(names, md.Code(c.String()))
	}
	return names
}
