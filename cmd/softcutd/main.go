// Command softcutd hosts the softcut engine against a real duplex audio
// stream and exposes its control API through a simple line-oriented stdin
// loop: it wires stdin line commands straight to internal/control for smoke
// testing without a norns-side client.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"softcut/internal/buffer"
	"softcut/internal/clock"
	"softcut/internal/config"
	"softcut/internal/control"
	"softcut/internal/engine"
)

func main() {
	var (
		tempo        = pflag.Float64("tempo", 0, "starting tempo in bpm (0 = use config)")
		blockSize    = pflag.IntP("block-size", "b", 0, "audio block size in frames (0 = use config)")
		inputDevice  = pflag.Int("input-device", -2, "input device index (-2 = use config, -1 = system default)")
		outputDevice = pflag.Int("output-device", -2, "output device index (-2 = use config, -1 = system default)")
		listDevices  = pflag.Bool("list-devices", false, "list audio devices and exit")
		help         = pflag.Bool("help", false, "display help text")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: softcutd [flags]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	if err := portaudio.Initialize(); err != nil {
		log.Fatal("portaudio init failed", "err", err)
	}
	defer portaudio.Terminate()

	if *listDevices {
		printDevices()
		return
	}

	cfg := config.Load()
	if *tempo > 0 {
		cfg.TempoBPM = *tempo
	}
	if *blockSize > 0 {
		cfg.BlockSize = *blockSize
	}
	if *inputDevice != -2 {
		cfg.InputDeviceID = *inputDevice
	}
	if *outputDevice != -2 {
		cfg.OutputDeviceID = *outputDevice
	}

	eng := engine.New()
	clk := clock.New()
	clk.SetTempo(cfg.TempoBPM)
	clk.Start()
	ctl := control.New(eng)

	ctl.OnPhase(func(voice int, posS float64) {
		log.Debug("phase", "voice", voice, "pos_s", posS)
	})
	ctl.OnBufferData(func(buf int, startS float64, samples []float32) {
		log.Info("buffer_read complete", "buffer", buf, "start_s", startS, "n", len(samples))
	})
	ctl.OnBufferReadRefused(func(requestID uint64) {
		log.Warn("buffer_read refused: events queue full", "request_id", requestID)
	})

	stream, err := openDuplexStream(eng, cfg)
	if err != nil {
		log.Fatal("open audio stream failed", "err", err)
	}
	if err := stream.Start(); err != nil {
		log.Fatal("start audio stream failed", "err", err)
	}
	defer stream.Stop()
	defer stream.Close()

	log.Info("softcutd started", "tempo_bpm", clk.Tempo(), "block_size", cfg.BlockSize)

	pollLoop := clk.Run(func(ctx *clock.Context) error {
		for {
			if err := ctl.Poll(); err != nil {
				return err
			}
			if err := ctx.Sleep(0.01); err != nil {
				return err
			}
		}
	})
	defer clk.Cancel(pollLoop)

	runREPL(ctl, clk)
	log.Info("softcutd shutting down")
}

// openDuplexStream opens a single portaudio stream driving engine.Process
// directly from its callback: Process is the sole real-time boundary, so
// the callback does nothing else.
func openDuplexStream(eng *engine.Engine, cfg config.Config) (*portaudio.Stream, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	inDev, err := resolveDevice(devices, cfg.InputDeviceID, portaudio.DefaultInputDevice)
	if err != nil {
		return nil, err
	}
	outDev, err := resolveDevice(devices, cfg.OutputDeviceID, portaudio.DefaultOutputDevice)
	if err != nil {
		return nil, err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDev,
			Channels: 1,
			Latency:  inDev.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   outDev,
			Channels: 2,
			Latency:  outDev.DefaultLowOutputLatency,
		},
		SampleRate:      buffer.SampleRate,
		FramesPerBuffer: cfg.BlockSize,
	}

	in := make([]float32, cfg.BlockSize)
	outL := make([]float32, cfg.BlockSize)
	outR := make([]float32, cfg.BlockSize)
	interleavedOut := make([]float32, cfg.BlockSize*2)

	callback := func(input, output []float32) {
		copy(in, input)
		eng.Process(in, outL, outR)
		for i := 0; i < cfg.BlockSize; i++ {
			interleavedOut[2*i] = outL[i]
			interleavedOut[2*i+1] = outR[i]
		}
		copy(output, interleavedOut)
	}

	log.Info("opening audio stream", "input", inDev.Name, "output", outDev.Name)
	return portaudio.OpenStream(params, callback)
}

func resolveDevice(devices []*portaudio.DeviceInfo, idx int, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if idx >= 0 && idx < len(devices) {
		return devices[idx], nil
	}
	return fallback()
}

func printDevices() {
	devices, err := portaudio.Devices()
	if err != nil {
		log.Fatal("list devices failed", "err", err)
	}
	for i, d := range devices {
		fmt.Printf("%2d: %-32s in=%d out=%d\n", i, d.Name, d.MaxInputChannels, d.MaxOutputChannels)
	}
}

// runREPL reads simple line-oriented commands from stdin until EOF or
// "quit", translating them directly into Control calls. It is a debugging
// aid, not the public API surface — the real client is whatever embeds
// internal/control.
func runREPL(ctl *control.Control, clk *clock.Clock) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("softcutd ready. commands: enable/play/rec <voice> <0|1>, rate/level/pan <voice> <v>, tempo <bpm>, quit")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" {
			return
		}
		if err := dispatch(ctl, clk, fields); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func dispatch(ctl *control.Control, clk *clock.Clock, fields []string) error {
	switch fields[0] {
	case "tempo":
		if len(fields) != 2 {
			return fmt.Errorf("usage: tempo <bpm>")
		}
		bpm, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return err
		}
		clk.SetTempo(bpm)
		return nil
	case "enable", "play", "rec":
		if len(fields) != 3 {
			return fmt.Errorf("usage: %s <voice> <0|1>", fields[0])
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		on := fields[2] == "1"
		switch fields[0] {
		case "enable":
			return ctl.Enable(v, on)
		case "play":
			return ctl.Play(v, on)
		default:
			return ctl.Rec(v, on)
		}
	case "rate", "level", "pan":
		if len(fields) != 3 {
			return fmt.Errorf("usage: %s <voice> <value>", fields[0])
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return err
		}
		switch fields[0] {
		case "rate":
			return ctl.Rate(v, f)
		case "level":
			return ctl.Level(v, f)
		default:
			return ctl.Pan(v, f)
		}
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}
