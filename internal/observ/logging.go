package observ

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	sinkMu sync.Mutex
	sink   io.Writer = os.Stdout
)

// SetLogFile mirrors the event stream to a size-capped rolling file in
// addition to stdout.
func SetLogFile(path string) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
	})
}

func Log(event string, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	kv["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	kv["event"] = event
	b, _ := json.Marshal(kv)
	sinkMu.Lock()
	fmt.Fprintln(sink, string(b))
	sinkMu.Unlock()
}
