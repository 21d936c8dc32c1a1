package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"orsi/internal/api"
	"orsi/internal/services"
)

// CommandKind names an interactive console command.
type CommandKind string

const (
	CommandUpload  CommandKind = "upload"
	CommandDelete  CommandKind = "delete"
	CommandMeta    CommandKind = "meta"
	CommandClose   CommandKind = "close"
	CommandDismiss CommandKind = "dismiss"
	CommandRefresh CommandKind = "refresh"
	CommandHelp    CommandKind = "help"
	CommandQuit    CommandKind = "quit"
)

// Command is one parsed input line.
type Command struct {
	Kind     CommandKind
	Path     string
	Folder   api.Folder
	Filename string
}

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// Help lists the interactive commands.
const Help = `commands:
  upload PATH            upload a local video file
  delete FOLDER NAME     delete a video (FOLDER is uploaded or processed)
  meta NAME              show the metadata of a video
  close                  close the metadata view
  dismiss                clear the alert, notice and metadata view
  refresh                re-fetch the video lists
  help                   show this help
  quit                   leave the console`

// ParseCommand parses one input line. Paths and filenames run to the end of
// the line so they may contain spaces.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, services.Wrap(services.ErrInvalidInput, "command", "", "empty command", nil)
	}
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(word) {
	case "upload", "u":
		if rest == "" {
			return Command{}, services.Wrap(services.ErrNoFileSelected, "command", "upload", "", nil)
		}
		return Command{Kind: CommandUpload, Path: rest}, nil
	case "delete", "rm":
		folderArg, name, _ := strings.Cut(rest, " ")
		name = strings.TrimSpace(name)
		folder, err := api.ParseFolder(folderArg)
		if err != nil {
			return Command{}, services.Wrap(services.ErrInvalidInput, "command", "delete", "", err)
		}
		if name == "" {
			return Command{}, services.Wrap(services.ErrInvalidInput, "command", "delete", "filename is required", nil)
		}
		return Command{Kind: CommandDelete, Folder: folder, Filename: name}, nil
	case "meta", "metadata", "m":
		if rest == "" {
			return Command{}, services.Wrap(services.ErrInvalidInput, "command", "meta", "filename is required", nil)
		}
		return Command{Kind: CommandMeta, Filename: rest}, nil
	case "close":
		return Command{Kind: CommandClose}, nil
	case "dismiss", "d":
		return Command{Kind: CommandDismiss}, nil
	case "refresh", "r":
		return Command{Kind: CommandRefresh}, nil
	case "help", "?":
		return Command{Kind: CommandHelp}, nil
	case "quit", "exit", "q":
		return Command{Kind: CommandQuit}, nil
	default:
		return Command{}, services.Wrap(services.ErrInvalidInput, "command", word, fmt.Sprintf("unknown command %q", word), nil)
	}
}

// Execute runs cmd against the session. Failures are already surfaced in the
// alert slot; the returned error is informational. Quit returns ErrQuit.
func (s *Session) Execute(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CommandUpload:
		_, err := s.Upload(ctx, cmd.Path)
		return err
	case CommandDelete:
		return s.Delete(ctx, cmd.Folder, cmd.Filename)
	case CommandMeta:
		_, err := s.Metadata(ctx, cmd.Filename)
		return err
	case CommandClose:
		s.reg.CloseDetail()
		s.notify()
		return nil
	case CommandDismiss:
		s.Dismiss()
		return nil
	case CommandRefresh:
		return s.Refresh(ctx)
	case CommandHelp:
		return nil
	case CommandQuit:
		return ErrQuit
	default:
		return services.Wrap(services.ErrInvalidInput, "command", string(cmd.Kind), "unsupported command", nil)
	}
}
