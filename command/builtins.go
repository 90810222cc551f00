package command

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"
)

// BuiltinOptions configures the builtin command set.
type BuiltinOptions struct {
	// MusicDir is the directory scanned by play_music.
	MusicDir string
	// Opener launches URLs for open_website. Defaults to the OS browser.
	Opener Opener
	// Player plays audio files for play_music. Defaults to an error stub so
	// headless deployments fail loudly instead of silently.
	Player Player
	// Clock supplies the current time for clock commands. Defaults to time.Now.
	Clock Clock
}

// RegisterBuiltins registers the full builtin command set on the registry:
// open_website, play_music, current_time, current_date, remember_preference
// and recall_memory. Registration order fixes pattern precedence (the more
// specific remember_preference pattern wins over recall_memory).
func RegisterBuiltins(registry *Registry, optFns ...func(o *BuiltinOptions)) error {
	opts := BuiltinOptions{
		MusicDir: "music",
		Opener:   BrowserOpener(),
		Player:   PlayerFunc(func(path string) error { return fmt.Errorf("no audio player configured") }),
		Clock:    time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	cmds := []Command{
		NewOpenWebsiteCommand(opts.Opener),
		NewPlayMusicCommand(opts.MusicDir, opts.Player),
		NewCurrentTimeCommand(opts.Clock),
		NewCurrentDateCommand(opts.Clock),
		NewRememberPreferenceCommand(),
		NewRecallMemoryCommand(),
	}

	for _, cmd := range cmds {
		if err := registry.Register(cmd); err != nil {
			return err
		}
	}

	return nil
}

// BrowserOpener returns an Opener shelling out to the platform's URL handler.
func BrowserOpener() Opener {
	return OpenerFunc(func(url string) error {
		switch runtime.GOOS {
		case "darwin":
			return exec.Command("open", url).Start()
		case "windows":
			return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
		default:
			return exec.Command("xdg-open", url).Start()
		}
	})
}
