package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/inkwell"
	"github.com/aretw0/inkwell/internal/config"
	"github.com/aretw0/inkwell/internal/presentation/graph"
	"github.com/aretw0/inkwell/pkg/domain"
)

// ErrInvalidStory is returned by Validate after the individual problems were printed.
var ErrInvalidStory = errors.New("story is invalid")

// Validate compiles the story at path and prints every problem found.
func Validate(path string, w io.Writer) error {
	engine, err := inkwell.Load(path)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return err
		}
		errs := domain.Errors(err)
		for _, e := range errs {
			fmt.Fprintf(w, "%s: %v\n", filepath.Base(path), e)
		}
		return fmt.Errorf("%w: %d error(s)", ErrInvalidStory, len(errs))
	}
	story := engine.Story()
	fmt.Fprintf(w, "✓ %s is valid: %d knot(s), %d variable(s)\n", filepath.Base(path), len(story.Order), len(story.Variables))
	return nil
}

// Graph writes a Mermaid flowchart of the story. With a session ID, the visited
// locations and the current position of that session are highlighted.
func Graph(ctx context.Context, cfg config.Config, path, sessionID string, w io.Writer) error {
	engine, err := createEngine(path, cfg, cfg.Logger())
	if err != nil {
		return err
	}

	var overlay *graph.GraphOverlay
	if sessionID != "" {
		p, err := OpenPersistence(ctx, durable(cfg.Store))
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer p.Close()
		state, err := p.Store.Load(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session '%s': %w", sessionID, err)
		}
		overlay = graph.OverlayFromState(state)
	}

	_, err = io.WriteString(w, graph.GenerateMermaid(engine.Story(), overlay))
	return err
}

// ListSessions prints the IDs of the stored sessions, one per line.
func ListSessions(ctx context.Context, cfg config.Config, w io.Writer) error {
	p, err := OpenPersistence(ctx, durable(cfg.Store))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer p.Close()

	ids, err := p.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}
	fmt.Fprintln(w, strings.Join(ids, "\n"))
	return nil
}

// InspectSession prints the stored state of a session as indented JSON.
func InspectSession(ctx context.Context, cfg config.Config, sessionID string, w io.Writer) error {
	p, err := OpenPersistence(ctx, durable(cfg.Store))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer p.Close()

	state, err := p.Store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session '%s': %w", sessionID, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

// RemoveSession deletes a stored session.
func RemoveSession(ctx context.Context, cfg config.Config, sessionID string, w io.Writer) error {
	p, err := OpenPersistence(ctx, durable(cfg.Store))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer p.Close()

	if err := p.Store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session '%s': %w", sessionID, err)
	}
	fmt.Fprintf(w, "Session '%s' deleted.\n", sessionID)
	return nil
}
