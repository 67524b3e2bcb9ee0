// Filesystem execution traces: prefetch files and recently used
// shortcuts.

package extractors

import (
	"context"
	"strings"

	"github.com/Velocidex/ordereddict"
	prefetch "www.velocidex.com/golang/go-prefetch"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/filesystem"
)

const (
	prefetchDirectory = "Windows\\Prefetch"
	recentDirectory   = "AppData\\Roaming\\Microsoft\\Windows\\Recent"
)

type PrefetchExtractor struct{}

func (self PrefetchExtractor) Name() string {
	return "prefetch"
}

func (self PrefetchExtractor) Extract(
	ctx context.Context, walker *filesystem.Walker,
	case_id string, output chan<- *artifacts.Artifact) error {

	for _, volume := range walker.ListVolumes() {
		for _, info := range volume.ListDirectory(prefetchDirectory) {
			if info.IsDir ||
				!strings.HasSuffix(strings.ToLower(info.Name), ".pf") {
				continue
			}

			pf_path := prefetchDirectory + "\\" + info.Name
			reader, _, err := volume.Open(pf_path)
			if err != nil {
				continue
			}

			prefetch_info, err := prefetch.LoadPrefetch(reader)
			if err != nil {
				// Damaged or compressed beyond recognition.
				continue
			}

			source := volume.Name() + "\\" + pf_path

			// One execution artifact per recorded run time gives the
			// timeline a point per launch, not one per binary.
			for _, run_time := range prefetch_info.LastRunTimes {
				if run_time.IsZero() {
					continue
				}

				artifact := &artifacts.Artifact{
					CaseId: case_id,
					Type:   artifacts.Prefetch,
					NaturalKey: artifacts.MakeKey(
						prefetch_info.Executable,
						artifacts.TimeKey(run_time)),
					Source:    source,
					Timestamp: run_time,
					Payload: ordereddict.NewDict().
						Set("executable", prefetch_info.Executable).
						Set("run_count", int64(prefetch_info.RunCount)).
						Set("files_accessed",
							len(prefetch_info.FilesAccessed)),
				}
				if !emit(ctx, output, self.Name(), artifact) {
					return ctx.Err()
				}
			}
		}
	}
	return nil
}

type ShortcutExtractor struct{}

func (self ShortcutExtractor) Name() string {
	return "shortcuts"
}

func (self ShortcutExtractor) Extract(
	ctx context.Context, walker *filesystem.Walker,
	case_id string, output chan<- *artifacts.Artifact) error {

	for _, volume := range walker.ListVolumes() {
		for _, profile := range volume.ListUserProfiles() {
			recent_path := profile.Path + "\\" + recentDirectory

			for _, info := range volume.ListDirectory(recent_path) {
				if info.IsDir ||
					!strings.HasSuffix(strings.ToLower(info.Name), ".lnk") {
					continue
				}

				lnk_path := recent_path + "\\" + info.Name
				data, err := volume.ReadFile(lnk_path)
				if err != nil {
					continue
				}

				link, err := ParseShellLink(data)
				if err != nil {
					continue
				}

				// The shortcut file's own mtime records the last time
				// the target was opened from the shell.
				accessed := info.Mtime
				if accessed.IsZero() {
					accessed = link.AccessTime
				}

				artifact := &artifacts.Artifact{
					CaseId: case_id,
					Type:   artifacts.Shortcut,
					NaturalKey: artifacts.MakeKey(
						link.TargetPath, artifacts.TimeKey(accessed)),
					Source:    volume.Name() + "\\" + lnk_path,
					Timestamp: accessed,
					Payload: ordereddict.NewDict().
						Set("target_path", link.TargetPath).
						Set("target_size", int64(link.TargetSize)).
						Set("username", profile.Name).
						Set("target_modified", link.WriteTime),
				}
				if !emit(ctx, output, self.Name(), artifact) {
					return ctx.Err()
				}
			}
		}
	}
	return nil
}

func init() {
	RegisterExtractor(&PrefetchExtractor{})
	RegisterExtractor(&ShortcutExtractor{})
}
