package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/audio"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/camera"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/config"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver/alsain"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver/gpiospeaker"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver/v4l2cam"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/globals"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/logger"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/poll"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/storage"
)

func main() {
	// Initialize logger first to capture all logs
	logger.Init()
	defer logger.Flush()

	log.Printf("Starting (firmware %s)", globals.FirmwareVersion)

	// Initialize config
	if err := config.Init(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.Get()

	// Storage first: audio and camera persist through it. Both media are
	// optional; the managers degrade on their own when neither mounts.
	storage.Init(
		storage.NewDiskMedium("SD", globals.SDRoot),
		storage.NewDiskMedium("Flash", globals.FlashRoot),
	)
	store := storage.Get()
	store.EnableLogging(true, time.Duration(cfg.GetInt("logInterval"))*time.Millisecond)

	audioMgr, err := audio.New(0, alsain.New("default"), gpiospeaker.New(), store, nil)
	if err != nil {
		log.Fatalf("Failed to create audio manager: %v", err)
	}
	audioMgr.SetVolume(cfg.GetInt("masterVolume"))
	audioMgr.SetSampleRate(cfg.GetInt("sampleRate"))
	audioMgr.SetBitDepth(cfg.GetInt("bitDepth"))
	audioMgr.Begin(cfg.GetInt("speakerPin"), cfg.GetInt("micPin"))

	cameraMgr := camera.New(v4l2cam.New("/dev/video0"), store, nil)
	cameraMgr.SetJpegQuality(cfg.GetInt("jpegQuality"))
	if cameraMgr.Begin() {
		cameraMgr.SetAutoCapture(
			cfg.GetBool("autoCapture", false),
			time.Duration(cfg.GetInt("autoCaptureInterval"))*time.Millisecond,
		)
	}

	store.LogSystemEvent("boot complete")
	if err := audioMgr.PlaySystemSound(audio.SoundPowerOn); err != nil {
		log.Printf("Startup sound failed: %v", err)
	}

	// One cooperative loop drives every manager; fixed update order.
	loop := poll.NewLoop(
		time.Duration(cfg.GetInt("pollInterval"))*time.Millisecond,
		audioMgr,
		cameraMgr,
		store,
	)
	loop.Add(&housekeeping{
		store:        store,
		audio:        audioMgr,
		camera:       cameraMgr,
		usageRefresh: poll.NewInterval(time.Minute, nil),
		heartbeat:    poll.NewInterval(5*time.Minute, nil),
		cleanup:      poll.NewInterval(24*time.Hour, nil),
	})

	// Run until interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	loop.Run(ctx)

	log.Println("Shutting down")
}

// housekeeping carries the slow periodic chores on the same poll loop.
type housekeeping struct {
	store  *storage.Manager
	audio  *audio.Manager
	camera *camera.Manager

	usageRefresh *poll.Interval
	heartbeat    *poll.Interval
	cleanup      *poll.Interval
}

func (h *housekeeping) Update() {
	if h.usageRefresh.Due() {
		h.store.UpdateStorageInfo()
	}
	if h.heartbeat.Due() {
		h.store.LogSystemEvent(h.audio.Status())
		h.store.LogSystemEvent(h.camera.Status())
		h.store.LogSystemEvent(h.store.Status())
	}
	if h.cleanup.Due() {
		h.store.CleanupOldFiles(30)
	}
}
