// Package archive files away the final snapshot of each epoch. A
// restart closes the running epoch; its closing snapshot is not a
// resume point, so it lives under archives/ instead of snapshots/.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gridlands.gg/internal/persistence/snapshot"
)

type EpochArchiveMeta struct {
	Epoch      uint64 `json:"epoch"`
	EndTick    uint64 `json:"end_tick"`
	Seed       int64  `json:"seed"`
	GridWidth  int    `json:"grid_width"`
	GridHeight int    `json:"grid_height"`
	Players    int    `json:"players"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
}

// ArchiveEpochSnapshot writes an epoch-closing snapshot into
// `worldDir/archives/epoch_<NNN>/` together with a meta.json. Snapshots
// that do not close an epoch are ignored and reported as not archived.
func ArchiveEpochSnapshot(worldDir string, snap snapshot.SnapshotV1) (epoch uint64, archivedPath string, archived bool, err error) {
	if !snap.EpochFinal || snap.Epoch == 0 {
		return 0, "", false, nil
	}
	epoch = snap.Epoch

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("epoch_%03d", epoch))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
	if err := snapshot.WriteSnapshot(dst, snap); err != nil {
		return 0, "", false, err
	}

	meta := EpochArchiveMeta{
		Epoch:      epoch,
		EndTick:    snap.Header.Tick,
		Seed:       snap.Seed,
		GridWidth:  snap.GridWidth,
		GridHeight: snap.GridHeight,
		Players:    len(snap.Players),
		Snapshot:   filepath.Base(dst),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return epoch, dst, true, nil
}

// ListEpochArchives reads every archives/epoch_*/meta.json under
// worldDir, ordered by epoch. Directories without a readable meta.json
// are skipped.
func ListEpochArchives(worldDir string) ([]EpochArchiveMeta, error) {
	pattern := filepath.Join(worldDir, "archives", "epoch_*")
	dirs, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	metas := make([]EpochArchiveMeta, 0, len(dirs))
	for _, dir := range dirs {
		raw, err := os.ReadFile(filepath.Join(dir, "meta.json"))
		if err != nil {
			continue
		}
		var m EpochArchiveMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		metas = append(metas, m)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Epoch < metas[j].Epoch })
	return metas, nil
}
