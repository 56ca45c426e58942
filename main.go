// Command presets edits the presets of a device from the command line.
//
//	presets -url http://matrix.local:8080 -list
//	presets -preset default -show
//	presets -preset default -set 3f2a.weight=4 -set 3f2a.speed=2.5 -push -save
//
// Edits are validated against the device's schema. Without -save they are
// shown as a diff and discarded.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/asaidimu/go-presets/client"
	"github.com/asaidimu/go-presets/core/editor"
	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/push"
	"github.com/asaidimu/go-presets/core/session"
	"github.com/asaidimu/go-presets/core/store"
	"go.uber.org/zap"
)

// assignments collects repeated -set flags.
type assignments []string

func (a *assignments) String() string     { return strings.Join(*a, ",") }
func (a *assignments) Set(v string) error { *a = append(*a, v); return nil }

type options struct {
	url      string
	id       string
	list     bool
	show     bool
	addScene string
	sets     assignments
	push     bool
	save     bool
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.url, "url", client.DefaultConfig().BaseURL, "device base URL")
	flag.StringVar(&opts.id, "preset", "", "preset id to edit")
	flag.BoolVar(&opts.list, "list", false, "list preset ids and exit")
	flag.BoolVar(&opts.show, "show", false, "print the scenes and their fields")
	flag.StringVar(&opts.addScene, "add-scene", "", "add a scene of this type")
	flag.Var(&opts.sets, "set", "scene.argument=value edit, repeatable")
	flag.BoolVar(&opts.push, "push", false, "send the edited preset to the device for preview")
	flag.BoolVar(&opts.save, "save", false, "save the edits")
	flag.BoolVar(&opts.verbose, "v", false, "verbose logging")
	flag.Parse()

	logger := zap.NewNop()
	if opts.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	if err := run(context.Background(), opts, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	cfg := client.DefaultConfig()
	cfg.BaseURL = opts.url
	c, err := client.New(cfg, logger.Named("client"))
	if err != nil {
		return err
	}

	if opts.list {
		ids, err := c.PresetIDs(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}
	if opts.id == "" {
		return fmt.Errorf("-preset is required")
	}

	s, err := store.New(c, logger.Named("store"))
	if err != nil {
		return err
	}
	if _, err := s.Load(ctx, opts.id); err != nil {
		return err
	}

	coordinator := session.NewCoordinator(s, c)
	guard := session.NewGuard(s, coordinator, opts.id)
	tracker := session.NewTracker(s, opts.id)

	if opts.addScene != "" {
		scene, err := editor.AddScene(s, opts.id, opts.addScene)
		if err != nil {
			return err
		}
		fmt.Printf("added scene %s (%s)\n", scene.UUID, scene.Type)
	}
	for _, a := range opts.sets {
		if err := apply(s, opts.id, a); err != nil {
			return err
		}
	}

	if opts.show {
		if err := show(s, opts.id); err != nil {
			return err
		}
	}
	if tracker.IsDirty() {
		fmt.Println(tracker.Diff())
	}

	if opts.push {
		pusher := push.New(s, c, push.DefaultOptions())
		err := pusher.Flush(ctx, opts.id)
		pusher.Close()
		if err != nil {
			return err
		}
	}

	left, err := guard.RequestLeave(ctx, func() {})
	if err != nil || left {
		return err
	}
	if opts.save {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := guard.SaveAndLeave(ctx); err != nil {
			return err
		}
		fmt.Println("saved", opts.id)
		return nil
	}
	fmt.Println("edits discarded, pass -save to keep them")
	return guard.Discard(ctx)
}

// apply parses "scene.argument=value" and commits value through the
// argument's field. A scene may be named by a unique uuid prefix.
func apply(s *store.Store, id, assignment string) error {
	target, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("invalid -set %q: expected scene.argument=value", assignment)
	}
	sceneRef, argument, ok := strings.Cut(target, ".")
	if !ok {
		return fmt.Errorf("invalid -set %q: expected scene.argument=value", assignment)
	}

	sceneUUID, err := findScene(s, id, sceneRef)
	if err != nil {
		return err
	}
	fields, _, err := editor.Fields(s, id, sceneUUID)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if f.Name == argument {
			_, err := f.Commit(value)
			return err
		}
	}

	// Arguments missing from the document can still be set if the schema
	// declares them.
	p, _ := s.Get(id)
	entry, ok := s.Scenes().Find(p.Scenes[sceneUUID].Type)
	if !ok {
		return fmt.Errorf("scene %s has no argument %q", sceneUUID, argument)
	}
	prop, ok := entry.FindProperty(argument)
	if !ok {
		return fmt.Errorf("scene type %s has no argument %q", entry.Name, argument)
	}
	_, err = editor.NewField(*prop, editor.SceneBinding(s, id, sceneUUID).Sub(argument)).Commit(value)
	return err
}

func findScene(s *store.Store, id, ref string) (string, error) {
	p, _ := s.Get(id)
	if _, ok := p.Scenes[ref]; ok {
		return ref, nil
	}
	var match string
	for uuid := range p.Scenes {
		if strings.HasPrefix(uuid, ref) {
			if match != "" {
				return "", fmt.Errorf("scene %q is ambiguous", ref)
			}
			match = uuid
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %q", editor.ErrSceneNotFound, ref)
	}
	return match, nil
}

func show(s *store.Store, id string) error {
	p, _ := s.Get(id)
	for _, scene := range preset.SortedScenes(p) {
		fmt.Printf("%s  %s\n", scene.UUID, scene.Type)
		fields, issues, err := editor.Fields(s, id, scene.UUID)
		if err != nil {
			return err
		}
		for _, f := range fields {
			v, _ := f.Value()
			if !f.Known() {
				fmt.Printf("    %-16s Unknown Property\n", f.Name)
				continue
			}
			if f.Behavior.Kind() == editor.KindColor {
				v = editor.FormatColor(v)
			}
			fmt.Printf("    %-16s %v\n", f.Name, v)
		}
		for _, issue := range issues {
			fmt.Printf("    ! %s: %s\n", issue.Code, issue.Message)
		}
	}
	return nil
}
