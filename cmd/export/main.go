package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/Notifuse/designer/internal/domain"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/htmlgen"
	"github.com/Notifuse/designer/pkg/logger"
	"github.com/Notifuse/designer/pkg/markdown"
	"github.com/Notifuse/designer/pkg/mergetags"
)

// watchDebounce groups the burst of events editors emit on a single save
const watchDebounce = 150 * time.Millisecond

type options struct {
	input   string
	output  string
	format  domain.ExportFormat
	data    string
	compile bool
	watch   bool
	markers bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: export [flags] <template.json|template.yaml|email.md>")
		fs.PrintDefaults()
	}

	var opts options
	var format string
	fs.StringVar(&opts.output, "out", "", "output file (default email-template.html or email-template.mjml)")
	fs.StringVar(&format, "format", "html", "export format: html or mjml")
	fs.StringVar(&opts.data, "data", "", "JSON file with merge tag values")
	fs.BoolVar(&opts.compile, "compile", false, "compile MJML output to HTML")
	fs.BoolVar(&opts.watch, "watch", false, "re-export whenever the input file changes")
	fs.BoolVar(&opts.markers, "markers", true, "keep block markers so the HTML can be imported again")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("exactly one input file is required")
	}
	opts.input = fs.Arg(0)

	opts.format = domain.ExportFormat(strings.ToLower(format))
	if err := opts.format.Validate(); err != nil {
		return opts, err
	}
	if opts.output == "" {
		opts.output = htmlgen.ExportFilename
		if opts.format == domain.ExportFormatMJML && !opts.compile {
			opts.output = "email-template.mjml"
		}
	}
	return opts, nil
}

// loadTemplate reads a template or a bare block list from path. YAML and
// markdown are converted on the way in; everything else is read as JSON.
// Blocks come back ordered by position.y like a stored template.
func loadTemplate(path string) (*domain.Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		doc, err := markdown.ToDocument(raw)
		if err != nil {
			return nil, err
		}
		return &domain.Template{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), Blocks: doc}, nil
	case ".yaml", ".yml":
		if raw, err = yamlToJSON(raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	tpl := &domain.Template{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		var doc document.Document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse blocks: %w", err)
		}
		tpl.Blocks = doc
	} else if err := json.Unmarshal(raw, tpl); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	tpl.Blocks, _ = document.EnsureUniqueIDs(document.SortByPosition(tpl.Blocks))
	return tpl, nil
}

// yamlToJSON re-encodes YAML so the block codec only has to understand JSON
func yamlToJSON(raw []byte) ([]byte, error) {
	var v interface{}
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func loadData(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse merge tag data: %w", err)
	}
	return data, nil
}

// render produces the export content for tpl
func render(ctx context.Context, tpl *domain.Template, opts options, data map[string]interface{}) (string, error) {
	settings := tpl.ExportSettings().WithDefaults()
	settings.IncludeBlockMarkers = opts.markers && opts.format == domain.ExportFormatHTML

	var content string
	if opts.format == domain.ExportFormatMJML {
		content = htmlgen.GenerateMJML(tpl.Blocks, settings)
	} else {
		content = htmlgen.GenerateHTML(tpl.Blocks, settings)
	}

	if len(data) > 0 {
		var err error
		content, err = mergetags.NewEngine().Render(ctx, content, data)
		if err != nil {
			return "", fmt.Errorf("failed to apply merge tags: %w", err)
		}
	}

	if opts.format == domain.ExportFormatMJML && opts.compile {
		return htmlgen.CompileMJML(ctx, content)
	}
	return content, nil
}

func exportOnce(ctx context.Context, opts options, log logger.Logger) error {
	start := time.Now()

	tpl, err := loadTemplate(opts.input)
	if err != nil {
		return err
	}
	data, err := loadData(opts.data)
	if err != nil {
		return err
	}

	content, err := render(ctx, tpl, opts, data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.output, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}

	log.WithFields(map[string]interface{}{
		"blocks":   len(tpl.Blocks),
		"format":   string(opts.format),
		"output":   opts.output,
		"bytes":    len(content),
		"duration": time.Since(start).String(),
	}).Info("Export written")
	return nil
}

// watch re-exports after every write to the input or data file until ctx ends.
// The parent directory is watched because editors often replace files on save.
func watch(ctx context.Context, opts options, log logger.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	watched := map[string]bool{}
	for _, path := range []string{opts.input, opts.data} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		watched[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	log.WithField("input", opts.input).Info("Watching for changes")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithField("error", err.Error()).Warn("Watcher error")
		case <-pending:
			pending = nil
			if err := exportOnce(ctx, opts, log); err != nil {
				// Keep watching; the next save may fix the input
				log.WithField("error", err.Error()).Error("Export failed")
			}
		}
	}
}

func run(ctx context.Context, args []string, stderr io.Writer, log logger.Logger) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if err := exportOnce(ctx, opts, log); err != nil {
		if !opts.watch {
			return err
		}
		log.WithField("error", err.Error()).Error("Export failed")
	}

	if opts.watch {
		return watch(ctx, opts, log)
	}
	return nil
}

func main() {
	log := logger.NewLoggerWithOptions(logger.Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Pretty: true,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr, log); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error(err.Error())
		os.Exit(1)
	}
}
