package symbols

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshot is the msgpack layout of the warm start file.
type snapshot struct {
	FetchedAt int64               `msgpack:"fetched_at"`
	BySymbol  map[string][]string `msgpack:"by_symbol"`
	IDs       []string            `msgpack:"ids"`
}

func (r *Registry) saveSnapshot() error {
	r.mu.RLock()
	snap := snapshot{
		FetchedAt: r.fetchedAt.UnixMilli(),
		BySymbol:  r.bySymbol,
		IDs:       make([]string, 0, len(r.ids)),
	}
	for id := range r.ids {
		snap.IDs = append(snap.IDs, id)
	}
	payload, err := msgpack.Marshal(&snap)
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.snapshotPath), 0o755); err != nil {
		return err
	}
	tmp := r.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.snapshotPath)
}

func (r *Registry) loadSnapshot() error {
	payload, err := os.ReadFile(r.snapshotPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var snap snapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if len(snap.IDs) == 0 {
		return nil
	}
	ids := make(map[string]struct{}, len(snap.IDs))
	for _, id := range snap.IDs {
		ids[id] = struct{}{}
	}
	bySymbol := snap.BySymbol
	if bySymbol == nil {
		bySymbol = make(map[string][]string)
	}
	r.swap(bySymbol, ids, time.UnixMilli(snap.FetchedAt))
	return nil
}
