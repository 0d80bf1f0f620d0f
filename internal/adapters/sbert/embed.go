package sbert

import _ "embed"

//go:embed scripts/embed_worker.py
var embeddedWorkerScript string

const (
	workerDirName    = "worker"
	workerScriptName = "embed_worker.py"
)
