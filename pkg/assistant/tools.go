package assistant

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/AConteh33/go-marcus/pkg/entity"
	"github.com/AConteh33/go-marcus/pkg/runner"
	"github.com/AConteh33/go-marcus/pkg/tools"
)

const (
	toolTimeout       = 15 * time.Second
	searchResultLimit = 20
)

// entityKind describes one stored record type and the shape of its data,
// from which the CRUD tools are generated.
type entityKind struct {
	kind     string
	singular string
	plural   string
	fields   []entityField
}

type entityField struct {
	name        string
	description string
	required    bool
}

var entityKinds = []entityKind{
	{
		kind:     "note",
		singular: "note",
		plural:   "notes",
		fields: []entityField{
			{name: "content", description: "The note text", required: true},
		},
	},
	{
		kind:     "appointment",
		singular: "appointment",
		plural:   "appointments",
		fields: []entityField{
			{name: "title", description: "What the appointment is for", required: true},
			{name: "time", description: "When it takes place, in natural language", required: true},
		},
	},
	{
		kind:     "event",
		singular: "event",
		plural:   "events",
		fields: []entityField{
			{name: "title", description: "The event name", required: true},
			{name: "date", description: "When the event happens, in natural language", required: true},
		},
	},
}

// registerBuiltins installs the stock tool set: CRUD over stored
// entities, system helpers via the command runner, and session control.
func (a *Assistant) registerBuiltins(run runner.Runner) {
	for _, ek := range entityKinds {
		a.registerEntityTools(ek)
	}

	a.registry.Register(tools.Tool{
		Name:        "run_command",
		Description: "Run a shell command on this machine and return its output.",
		Parameters: objectSchema(map[string]any{
			"command": map[string]any{"type": "string", "description": "The command to run"},
		}, []string{"command"}),
		Handler: func(args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			if strings.TrimSpace(command) == "" {
				return "", errors.New("command is required")
			}
			ctx, cancel := context.WithTimeout(context.Background(), toolTimeout)
			defer cancel()
			out, err := run.Run(ctx, command)
			if err != nil {
				if errors.Is(err, runner.ErrUnavailable) {
					return "Command execution is not available on this system.", nil
				}
				return "", err
			}
			if out == "" {
				return "Command completed with no output.", nil
			}
			return out, nil
		},
	})

	a.registry.Register(tools.Tool{
		Name:        "search_files",
		Description: "Find files by name under the user's home directory.",
		Parameters: objectSchema(map[string]any{
			"pattern": map[string]any{"type": "string", "description": "Part of the file name to match"},
		}, []string{"pattern"}),
		Handler: handleSearchFiles,
	})

	a.registry.Register(tools.Tool{
		Name:        "take_screenshot",
		Description: "Capture the screen to an image file and return its path.",
		Parameters:  objectSchema(nil, nil),
		Handler: func(args map[string]any) (string, error) {
			return a.takeScreenshot(run)
		},
	})

	a.registry.Register(tools.Tool{
		Name:        "get_time",
		Description: "Get the current date and time.",
		Parameters:  objectSchema(nil, nil),
		Handler: func(args map[string]any) (string, error) {
			return time.Now().Format("Monday, January 2, 2006 at 3:04 PM"), nil
		},
	})

	a.registry.Register(tools.Tool{
		Name:        "end_session",
		Description: "End the conversation. Call when the user says goodbye.",
		Parameters:  objectSchema(nil, nil),
		Handler: func(args map[string]any) (string, error) {
			return "Goodbye.", nil
		},
	})
}

// registerEntityTools generates create/list/update/delete tools for one
// record kind.
func (a *Assistant) registerEntityTools(ek entityKind) {
	props := map[string]any{}
	var required []string
	for _, f := range ek.fields {
		props[f.name] = map[string]any{"type": "string", "description": f.description}
		if f.required {
			required = append(required, f.name)
		}
	}

	a.registry.Register(tools.Tool{
		Name:        "create_" + ek.singular,
		Description: fmt.Sprintf("Create a new %s.", ek.singular),
		Parameters:  objectSchema(props, required),
		Handler: func(args map[string]any) (string, error) {
			data := map[string]any{}
			for _, f := range ek.fields {
				value, _ := args[f.name].(string)
				if f.required && strings.TrimSpace(value) == "" {
					return "", fmt.Errorf("%s is required", f.name)
				}
				data[f.name] = value
			}
			rec, err := a.entities.Create(ek.kind, data)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Created %s %s.", ek.singular, shortID(rec.ID)), nil
		},
	})

	a.registry.Register(tools.Tool{
		Name:        "list_" + ek.plural,
		Description: fmt.Sprintf("List all %s.", ek.plural),
		Parameters:  objectSchema(nil, nil),
		Handler: func(args map[string]any) (string, error) {
			recs, err := a.entities.List(ek.kind)
			if err != nil {
				return "", err
			}
			if len(recs) == 0 {
				return fmt.Sprintf("There are no %s.", ek.plural), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%d %s:", len(recs), ek.plural)
			for _, rec := range recs {
				fmt.Fprintf(&b, "\n[%s] %s", shortID(rec.ID), summarize(ek, rec))
			}
			return b.String(), nil
		},
	})

	if ek.kind == "note" {
		a.registry.Register(tools.Tool{
			Name:        "update_" + ek.singular,
			Description: fmt.Sprintf("Update an existing %s by id.", ek.singular),
			Parameters: objectSchema(map[string]any{
				"id":      map[string]any{"type": "string", "description": "The id from list_" + ek.plural},
				"content": map[string]any{"type": "string", "description": "The new text"},
			}, []string{"id", "content"}),
			Handler: func(args map[string]any) (string, error) {
				id, _ := args["id"].(string)
				content, _ := args["content"].(string)
				rec, err := a.resolveRecord(ek.kind, id)
				if err != nil {
					return "", err
				}
				if _, err := a.entities.Update(ek.kind, rec.ID, map[string]any{"content": content}); err != nil {
					return "", err
				}
				return fmt.Sprintf("Updated %s %s.", ek.singular, shortID(rec.ID)), nil
			},
		})
	}

	a.registry.Register(tools.Tool{
		Name:        "delete_" + ek.singular,
		Description: fmt.Sprintf("Delete a %s by id.", ek.singular),
		Parameters: objectSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "The id from list_" + ek.plural},
		}, []string{"id"}),
		Handler: func(args map[string]any) (string, error) {
			id, _ := args["id"].(string)
			rec, err := a.resolveRecord(ek.kind, id)
			if err != nil {
				return "", err
			}
			if err := a.entities.Delete(ek.kind, rec.ID); err != nil {
				return "", err
			}
			return fmt.Sprintf("Deleted %s %s.", ek.singular, shortID(rec.ID)), nil
		},
	})
}

// resolveRecord accepts either a full id or the short prefix read back
// from a list, since the model usually echoes the short form.
func (a *Assistant) resolveRecord(kind, id string) (entity.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entity.Record{}, errors.New("id is required")
	}
	if rec, err := a.entities.Get(kind, id); err == nil {
		return rec, nil
	}
	recs, err := a.entities.List(kind)
	if err != nil {
		return entity.Record{}, err
	}
	for _, rec := range recs {
		if strings.HasPrefix(rec.ID, id) {
			return rec, nil
		}
	}
	return entity.Record{}, fmt.Errorf("no %s with id %s", kind, id)
}

func summarize(ek entityKind, rec entity.Record) string {
	parts := make([]string, 0, len(ek.fields))
	for _, f := range ek.fields {
		if v, _ := rec.Data[f.name].(string); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func handleSearchFiles(args map[string]any) (string, error) {
	pattern, _ := args["pattern"].(string)
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return "", errors.New("pattern is required")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	var matches []string
	err = filepath.WalkDir(home, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() && strings.HasPrefix(name, ".") && path != home {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.Contains(strings.ToLower(name), pattern) {
			matches = append(matches, path)
			if len(matches) >= searchResultLimit {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No files matching %q.", pattern), nil
	}
	return fmt.Sprintf("Found %d files:\n%s", len(matches), strings.Join(matches, "\n")), nil
}

// takeScreenshot shells out to the platform's capture tool through the
// command runner, so it also works over the remote bridge.
func (a *Assistant) takeScreenshot(run runner.Runner) (string, error) {
	if !run.Available() {
		return "Screenshots are not available on this system.", nil
	}
	dir := filepath.Join(a.cfg.DataDir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, time.Now().Format("20060102-150405")+".png")

	var command string
	switch runtime.GOOS {
	case "darwin":
		command = fmt.Sprintf("screencapture -x %q", path)
	default:
		command = fmt.Sprintf("gnome-screenshot -f %q || scrot %q || import -window root %q", path, path, path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), toolTimeout)
	defer cancel()
	if _, err := run.Run(ctx, command); err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}
	return "Saved screenshot to " + path, nil
}

// objectSchema builds the JSON-schema object the live API expects for
// tool parameters.
func objectSchema(props map[string]any, required []string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
