package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/m1gwings/treedrawer/tree"

	compose "github.com/pumped-fn/pumped-compose"
)

// TreeDebugMonitor logs the container and component tree when a cleanup
// fails, and on demand through Dump.
//
// Usage:
//
//	// Human-readable formatted output (with line breaks)
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelInfo)
//	rt := compose.NewRuntime(compose.WithMonitor(extensions.NewTreeDebugMonitor(handler)))
//
//	// Structured JSON logging (compact, machine-readable)
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//
//	// Silent (for testing)
//	m := extensions.NewTreeDebugMonitor(extensions.NewSilentHandler())
type TreeDebugMonitor struct {
	*compose.Introspection
	logger *slog.Logger
}

// NewTreeDebugMonitor creates a new tree debug monitor.
// logHandler: slog.Handler for logging (use HumanHandler for formatted output, or any other slog.Handler)
func NewTreeDebugMonitor(logHandler slog.Handler) *TreeDebugMonitor {
	return &TreeDebugMonitor{
		Introspection: compose.NewIntrospection(),
		logger:        slog.New(logHandler),
	}
}

func (m *TreeDebugMonitor) Name() string {
	return "tree-debug"
}

// OnCleanupError logs the tree alongside the failure. It never handles the
// error so the runtime's default reporting still runs.
func (m *TreeDebugMonitor) OnCleanupError(err *compose.CleanupError) bool {
	m.logger.Error("Cleanup Error",
		"owner", err.Owner.String(),
		"subscription", err.Subscription.String(),
		"context", err.Context,
		"error", err.Err.Error(),
		"component_tree", RenderTree(m.Snapshot()),
	)
	return false
}

// Dump logs the current tree at info level.
func (m *TreeDebugMonitor) Dump() {
	snap := m.Snapshot()
	m.logger.Info("Component Tree",
		"containers", len(snap.Containers),
		"components", len(snap.Components),
		"pending_disposals", snap.PendingDisposals,
		"component_tree", RenderTree(snap),
	)
}

// RenderTree draws the containers of snap, the components they own and the
// containers nested under those components.
func RenderTree(snap compose.Snapshot) string {
	root := tree.NewTree(tree.NodeString("runtime"))

	var addContainer func(parent *tree.Tree, c compose.ContainerDescriptor)
	addContainer = func(parent *tree.Tree, c compose.ContainerDescriptor) {
		label := fmt.Sprintf("%s [%s]", c.Name, c.Mode)
		if c.Visible {
			label += " visible"
		}
		node := parent.AddChild(tree.NodeString(label))
		for _, id := range c.Components {
			comp, ok := snap.Component(id)
			if !ok {
				continue
			}
			child := node.AddChild(tree.NodeString(fmt.Sprintf("%s subs=%d", shortID(id), comp.Subscriptions)))
			for _, nested := range snap.ContainersUnder(id) {
				addContainer(child, nested)
			}
		}
	}

	for _, c := range snap.Roots() {
		addContainer(root, c)
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(root.String())
	if snap.PendingDisposals > 0 {
		sb.WriteString(fmt.Sprintf("\n(%d destroyed, awaiting disposal)\n", snap.PendingDisposals))
	}
	return sb.String()
}

func shortID(id compose.ID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}

// HumanHandler is a slog.Handler that formats logs for human readability,
// printing the component tree on its own lines
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a new human-readable log handler
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{
		writer: writer,
		level:  level,
	}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	switch record.Message {
	case "Cleanup Error", "Component Tree":
		return h.handleTree(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func (h *HumanHandler) handleTree(record slog.Record) error {
	var fields []slog.Attr
	var rendered string

	record.Attrs(func(a slog.Attr) bool {
		if a.Key == "component_tree" {
			rendered = a.Value.String()
		} else {
			fields = append(fields, a)
		}
		return true
	})

	rule := strings.Repeat("=", 70)
	if _, err := fmt.Fprintf(h.writer, "\n%s\n[TreeDebug] %s\n%s\n\n", rule, record.Message, rule); err != nil {
		return err
	}
	for _, a := range fields {
		if _, err := fmt.Fprintf(h.writer, "%s: %v\n", a.Key, a.Value); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(h.writer, "\nComponent Tree:%s\n%s\n\n", rendered, rule); err != nil {
		return err
	}
	return nil
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return h
}
