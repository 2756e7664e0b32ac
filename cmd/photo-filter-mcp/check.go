package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-filter-mcp/internal/config"
	"github.com/ironsheep/photo-filter-mcp/internal/server"
)

// runCheck starts the server components without serving, prints a report
// and returns the process exit code.
func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, logger *logrus.Logger) int {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(out, "━━━ photo-filter-mcp %s ━━━\n\n", Version)

	pass(out, "configuration", fmt.Sprintf("max %dpx, %s q%d", cfg.MaxDimension, cfg.SaveFormat, cfg.JPEGQuality))

	srv, err := server.New(ctx, cfg, logger, Version)
	if err != nil {
		fail(out, "startup", err)
		return 1
	}
	defer srv.Close()

	d, err := srv.Diagnostics(ctx)
	if err != nil {
		fail(out, "library index", err)
		return 1
	}

	if len(d.Degraded) == 0 {
		pass(out, "filters", fmt.Sprintf("%d rendered", d.Filters))
	} else {
		warn(out, "filters", fmt.Sprintf("%d of %d unavailable: %s",
			len(d.Degraded), d.Filters, strings.Join(d.Degraded, ", ")))
	}
	pass(out, "edit session", "working image "+d.Working)
	pass(out, "library", fmt.Sprintf("%s (%d saved)", d.LibraryDir, d.SavedPhotos))

	fmt.Fprintln(out)
	color.New(color.FgGreen, color.Bold).Fprintln(out, "━━━ Ready ━━━")
	return 0
}

func pass(out io.Writer, name, msg string) {
	color.New(color.FgGreen).Fprintf(out, "  ✓ %s", name)
	color.New(color.FgHiBlack).Fprintf(out, " - %s\n", msg)
}

func warn(out io.Writer, name, msg string) {
	color.New(color.FgYellow).Fprintf(out, "  ! %s", name)
	color.New(color.FgHiBlack).Fprintf(out, " - %s\n", msg)
}

func fail(out io.Writer, name string, err error) {
	color.New(color.FgRed).Fprintf(out, "  ✗ %s\n", name)
	color.New(color.FgRed).Fprintf(out, "    └─ %s\n", err)
}
