package localcmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/protocol/wire"
)

// Command names recognized on the browser channel. Anything else is
// forwarded to the engine untouched.
const (
	CmdSave     = "save"
	CmdReadFile = "read_file"
)

var ErrUnsafePath = errors.New("localcmd: filename escapes artifacts directory")

// Handler resolves save/read commands against a single artifacts directory.
// Failures become failure replies; nothing here ever propagates an error to
// the relay loops.
type Handler struct {
	dir string
}

func NewHandler(dir string) *Handler {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &Handler{dir: dir}
}

// Handle answers recognized local commands. ok is false when the message is
// not a local command and must be forwarded instead; recognition is
// exclusive, so a recognized command never reaches the engine.
func (h *Handler) Handle(msg wire.Message) (wire.Message, bool) {
	cmd, ok := msg.Cmd()
	if !ok {
		return nil, false
	}
	switch cmd {
	case CmdSave:
		return h.save(msg), true
	case CmdReadFile:
		return h.readFile(msg), true
	default:
		return nil, false
	}
}

func (h *Handler) save(msg wire.Message) wire.Message {
	name := msg.String("filename")
	if name == "" {
		name = "artifact.html"
	}
	path, err := h.resolve(name)
	if err != nil {
		return wire.ErrorReply(err.Error())
	}
	if err := os.WriteFile(path, []byte(msg.String("content")), 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("artifact save failed")
		return wire.ErrorReply(fmt.Sprintf("write failed: %v", err))
	}
	log.Info().Str("path", path).Msg("artifact saved")
	return wire.Message{"ok": true, "path": path}
}

func (h *Handler) readFile(msg wire.Message) wire.Message {
	path, err := h.resolve(msg.String("filename"))
	if err != nil {
		return wire.ErrorReply(err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return wire.ErrorReply("file not found")
	}
	return wire.Message{"ok": true, "content": string(data)}
}

// resolve confines a requested filename to the artifacts directory.
func (h *Handler) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", ErrUnsafePath
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return filepath.Join(h.dir, clean), nil
}
