package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of myself.
// output example:
//  {"Session":"0c7c...","Gpio":17,"Frames":1204,"InvalidFrames":3,"MQTTConnected":true,
//   "NumGoroutines":11,"HeapAllocatedMB":3,"Version":"1.0.00+20261001","ProgLang":"go1.21.6"}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		frames, invalid := app.history.Counts()

		healthData := struct {
			Session         string
			Gpio            int
			Frames          int
			InvalidFrames   int
			MQTTConnected   bool
			NumGoroutines   int
			NumCPU          int
			HeapAllocatedMB uint64
			SysMemoryMB     uint64
			Version         string
			ProgLang        string
			HostName        string
			Time            string
		}{
			Session:         app.Session(),
			Gpio:            app.config.Gpio,
			Frames:          frames,
			InvalidFrames:   invalid,
			MQTTConnected:   app.mqtt.IsConnected(),
			NumGoroutines:   runtime.NumGoroutine(),
			NumCPU:          runtime.NumCPU(),
			HeapAllocatedMB: bToMb(m.Alloc),
			SysMemoryMB:     bToMb(m.Sys),
			ProgLang:        runtime.Version(),
			Version:         VERSION,
			HostName:        host,
			Time:            time.Now().Format(time.RFC3339),
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
