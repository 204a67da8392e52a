package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hazyhaar/promptpalette/pkg/api"
	"github.com/hazyhaar/promptpalette/pkg/catalog"
	"github.com/hazyhaar/promptpalette/pkg/prompt"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mattn/go-runewidth"
	"golang.design/x/clipboard"
)

func cmdTopics(args []string) {
	fs := flag.NewFlagSet("topics", flag.ExitOnError)
	subject := fs.String("subject", "", "subject id; empty lists subjects")
	query := fs.String("q", "", "search query (diacritics optional, abbreviations allowed)")
	_, _, reg := setup(fs, args)

	c := reg.Current()
	if *subject == "" {
		printSubjects(os.Stdout, c.Subjects())
		return
	}
	topics, err := c.Search(*subject, *query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(topics) == 0 {
		fmt.Fprintf(os.Stderr, "Không tìm thấy chủ đề nào cho %q. Hãy nhập chủ đề tùy chỉnh.\n", *query)
		os.Exit(2)
	}
	printTopics(os.Stdout, topics)
}

// printSubjects writes an aligned id/name/count table. Widths are display
// cells, not bytes.
func printSubjects(w io.Writer, subjects []*catalog.Subject) {
	idW, nameW := len("ID"), len("SUBJECT")
	for _, s := range subjects {
		idW = max(idW, runewidth.StringWidth(s.ID))
		nameW = max(nameW, runewidth.StringWidth(s.Name))
	}
	fmt.Fprintf(w, "%s  %s  %s\n", runewidth.FillRight("ID", idW), runewidth.FillRight("SUBJECT", nameW), "TOPICS")
	for _, s := range subjects {
		fmt.Fprintf(w, "%s  %s  %d\n", runewidth.FillRight(s.ID, idW), runewidth.FillRight(s.Name, nameW), len(s.Topics))
	}
}

const maxTopicWidth = 60

func printTopics(w io.Writer, topics []string) {
	numW := len(fmt.Sprint(len(topics)))
	for i, t := range topics {
		fmt.Fprintf(w, "%*d  %s\n", numW, i+1, runewidth.Truncate(t, maxTopicWidth, "…"))
	}
}

func cmdRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	subject := fs.String("subject", "", "subject id (required)")
	topic := fs.String("topic", "", "catalog topic or free text (required)")
	palette := fs.String("palette", "", "palette id (default: first palette)")
	mode := fs.String("mode", "2D", "design mode: 2D or 3D")
	copyOut := fs.Bool("copy", false, "also copy the output to the system clipboard")
	gen := fs.Bool("generate", false, "send the prompt to the configured AI service and print its answer")
	cfg, logger, reg := setup(fs, args)

	in, err := resolveInput(reg.Current(), *subject, *topic, *palette, *mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	out := prompt.Render(in)

	if *gen {
		g, err := newGenerator(cfg)
		if err != nil {
			logger.Error("generator", "error", err)
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		out, err = g.Generate(ctx, out, cfg.apiKey())
		if err != nil {
			logger.Error("generation failed", "error", err)
			fmt.Fprintln(os.Stderr, "Có lỗi xảy ra khi kết nối với AI. Vui lòng thử lại sau.")
			os.Exit(1)
		}
	}

	fmt.Println(out)
	if *copyOut {
		copyToClipboard(out, logger)
	}
}

func resolveInput(c *catalog.Catalog, subjectID, topic, paletteID, mode string) (prompt.Input, error) {
	subj, ok := c.Subject(subjectID)
	if !ok {
		return prompt.Input{}, fmt.Errorf("%w: %q", catalog.ErrUnknownSubject, subjectID)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return prompt.Input{}, fmt.Errorf("missing -topic")
	}
	m, err := prompt.ParseDesignMode(mode)
	if err != nil {
		return prompt.Input{}, err
	}
	in := prompt.Input{SubjectName: subj.Name, TopicName: topic, Mode: m}

	var pal *catalog.Palette
	if paletteID != "" {
		if pal, ok = c.Palette(paletteID); !ok {
			return prompt.Input{}, fmt.Errorf("%w: %q", catalog.ErrUnknownPalette, paletteID)
		}
	} else if palettes := c.Palettes(); len(palettes) > 0 {
		pal = &palettes[0]
	}
	if pal != nil {
		in.PaletteName, in.PaletteDescription = pal.Name, pal.Description
	}
	return in, nil
}

// copyToClipboard is best effort: headless hosts have no clipboard.
func copyToClipboard(text string, logger *slog.Logger) {
	if err := clipboard.Init(); err != nil {
		logger.Warn("clipboard unavailable", "error", err)
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	logger.Info("copied to clipboard", "bytes", len(text))
}

func cmdBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	dir := fs.String("dir", "catalog", "directory containing catalog.yaml")
	out := fs.String("out", "", "snapshot path (default: <dir>/catalog.gob)")
	fs.Parse(args)

	logger := newLogger(slog.LevelInfo)
	if *out == "" {
		*out = filepath.Join(*dir, "catalog.gob")
	}

	m, err := catalog.LoadManifest(filepath.Join(*dir, "catalog.yaml"))
	if err != nil {
		logger.Error("load manifest", "error", err)
		os.Exit(1)
	}
	if err := catalog.SaveGob(m, *out); err != nil {
		logger.Error("write snapshot", "error", err)
		os.Exit(1)
	}
	c := catalog.Compile(m)
	logger.Info("snapshot written", "path", *out, "id", m.ID, "version", m.Version,
		"subjects", len(c.Subjects()), "topics", c.TopicCount(), "palettes", len(m.Palettes))
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	_, logger, reg := setup(fs, args)

	srv := api.NewMCPServer(reg, version, logger)
	logger.Info("serving MCP over stdio")
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp stdio", "error", err)
		os.Exit(1)
	}
}
