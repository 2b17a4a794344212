package engine

import _ "embed"

//go:embed batch.py
var batchScript string
