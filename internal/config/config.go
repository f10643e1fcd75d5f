// Package config manages persistent preferences for the softcut daemon.
// Settings are stored as JSON at os.UserConfigDir()/softcut/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"softcut/internal/voice"
)

// Config holds every preference that survives a process restart: the audio
// device selection and block size for cmd/softcutd, the starting tempo, and
// a set of per-voice defaults. The per-voice defaults are saved and loaded
// with the rest of the file, but nothing applies them: the engine's reset
// uses voice.Defaults.
type Config struct {
	InputDeviceID  int     `json:"input_device_id"`
	OutputDeviceID int     `json:"output_device_id"`
	BlockSize      int     `json:"block_size"`
	TempoBPM       float64 `json:"tempo_bpm"`

	VoiceDefaults [voice.Count]VoiceDefaults `json:"voice_defaults"`
}

// VoiceDefaults mirrors a subset of voice.Voice, initialised from the
// engine's hardcoded factory defaults (voice.Defaults). Changing these
// values does not change how the engine initialises or resets a voice.
type VoiceDefaults struct {
	Rate      float64 `json:"rate"`
	Level     float64 `json:"level"`
	Pan       float64 `json:"pan"`
	LoopOn    bool    `json:"loop_on"`
	FadeTimeS float64 `json:"fade_time_s"`
	RecLevel  float64 `json:"rec_level"`
	PreLevel  float64 `json:"pre_level"`
}

// Default returns a Config populated with the engine's own factory defaults,
// so a fresh install behaves identically to one with no config file at all.
func Default() Config {
	cfg := Config{
		InputDeviceID:  -1,
		OutputDeviceID: -1,
		BlockSize:      256,
		TempoBPM:       120,
	}
	for i := 0; i < voice.Count; i++ {
		v := voice.Defaults(i)
		cfg.VoiceDefaults[i] = VoiceDefaults{
			Rate:      v.Rate,
			Level:     v.Level,
			Pan:       v.Pan,
			LoopOn:    v.LoopOn,
			FadeTimeS: v.FadeTimeS,
			RecLevel:  v.RecLevel,
			PreLevel:  v.PreLevel,
		}
	}
	return cfg
}

// Path returns the absolute path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "softcut", "config.json"), nil
}

// Load reads the config file and returns it. If the file is missing or
// unreadable, the default config is returned — never an error, since a
// daemon should always be able to start somewhere reasonable rather than
// fail over a missing preferences file.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to disk, creating the directory if needed.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
