package command

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/oppositecube/jarvis/core"
)

// musicExtensions lists the playable file suffixes.
var musicExtensions = []string{".mp3", ".wav", ".flac"}

// Player abstracts audio playback so the command stays testable and the real
// audio backend is supplied at wiring time.
type Player interface {
	Play(path string) error
}

// PlayerFunc adapts a plain function to the Player interface.
type PlayerFunc func(path string) error

// Play implements Player.
func (f PlayerFunc) Play(path string) error { return f(path) }

// ListTracks returns the playable files in dir (non-recursive).
func ListTracks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var tracks []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		for _, ext := range musicExtensions {
			if strings.HasSuffix(name, ext) {
				tracks = append(tracks, e.Name())
				break
			}
		}
	}
	return tracks, nil
}

// selectTrack picks the first track containing the requested name
// (case-insensitive) or a random one when no name was given.
func selectTrack(tracks []string, trackName string) (string, bool) {
	if trackName == "" {
		return tracks[rand.Intn(len(tracks))], true
	}
	want := strings.ToLower(trackName)
	for _, t := range tracks {
		if strings.Contains(strings.ToLower(t), want) {
			return t, true
		}
	}
	return "", false
}

// NewPlayMusicCommand builds the play_music command scanning musicDir for
// playable files. A specific track request matches by substring; otherwise a
// random track is chosen.
func NewPlayMusicCommand(musicDir string, player Player) *FunctionCommand {
	return NewFunctionCommand(
		"play_music",
		"Play a music track from the music directory, by name or at random",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"track": map[string]any{"type": "string", "description": "Optional track name to match"},
			},
		},
		func(cmdCtx *core.CommandContext, args map[string]any) (any, error) {
			if _, err := os.Stat(musicDir); err != nil {
				return nil, NewCommandError("play_music", "music directory not found", "EXECUTION_ERROR")
			}

			tracks, err := ListTracks(musicDir)
			if err != nil {
				return nil, fmt.Errorf("could not scan music directory: %w", err)
			}
			if len(tracks) == 0 {
				return nil, NewCommandError("play_music", "no music files found", "EXECUTION_ERROR")
			}

			trackName, _ := args["track"].(string)
			selected, ok := selectTrack(tracks, strings.TrimSpace(trackName))
			if !ok {
				return nil, NewCommandError("play_music", fmt.Sprintf("track %s not found", trackName), "EXECUTION_ERROR")
			}

			fullPath := filepath.Join(musicDir, selected)
			if err := player.Play(fullPath); err != nil {
				return nil, fmt.Errorf("could not play %s: %w", selected, err)
			}

			cmdCtx.SetState("now_playing", selected)

			return fmt.Sprintf("Playing %s", selected), nil
		},
		func(o *FunctionCommandOptions) {
			o.Patterns = []string{
				`^play\s+(?:some\s+)?music$`,
				`^play\s+(?P<track>.+)$`,
			}
		},
	)
}
