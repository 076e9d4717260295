package api

import (
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/detector"
)

// Engine is the part of app.Engine used by the handlers.
type Engine interface {
	Snapshot() app.Snapshot
	Start(m app.Modality) error
	Stop(m app.Modality) error
	Running(m app.Modality) bool
	OnFrame(sample detector.FrameSample)
	OnTranscript(text string, isFinal bool)
	Table() *command.Table
}
