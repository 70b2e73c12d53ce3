// Package pipeline runs the change-data-capture flow: read the source
// table, diff it against the previous snapshot, build the new snapshot and
// changeset, and publish them with an updated manifest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arthurljones/sqlite-diff/internal/artifact"
	"github.com/arthurljones/sqlite-diff/internal/compress"
	"github.com/arthurljones/sqlite-diff/internal/diff"
	"github.com/arthurljones/sqlite-diff/internal/logger"
	"github.com/arthurljones/sqlite-diff/internal/publish"
	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// LockName is the advisory lock file on the remote store.
const LockName = "sqlite-diff.lock"

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Source     types.SourceDatabase
	Snapshots  types.SnapshotStore
	Compressor types.Compressor

	// Remote is required by Run only.
	Remote types.RemoteStore

	// Progress defaults to a quiet printer.
	Progress types.Progress

	// Now defaults to time.Now.
	Now func() time.Time
}

// Pipeline runs one configured table through the flow.
type Pipeline struct {
	cfg  types.Config
	deps Deps
}

// New returns a pipeline for cfg.
func New(cfg types.Config, deps Deps) *Pipeline {
	if deps.Progress == nil {
		deps.Progress = logger.NewProgress()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// Report describes the outcome of a run.
type Report struct {
	Summary   diff.Summary    `json:"summary"`
	Previous  string          `json:"previous,omitempty"`
	Snapshot  *types.Artifact `json:"snapshot,omitempty"`
	Changeset *types.Artifact `json:"changeset,omitempty"`
	Published []string        `json:"published,omitempty"`
	NoChanges bool            `json:"no_changes"`
}

// Generate diffs the source against the snapshot at previousPath and, when
// anything changed, writes the new snapshot and changeset artifacts into
// outDir. An empty previousPath means there is no history: every row is
// added. A compressed previous snapshot is decompressed first.
func (p *Pipeline) Generate(ctx context.Context, previousPath, outDir string) (*Report, error) {
	return p.generate(ctx, previousPath, outDir, p.deps.Now())
}

// generate names any artifacts it writes with now.
func (p *Pipeline) generate(ctx context.Context, previousPath, outDir string, now time.Time) (*Report, error) {
	logger.Section("Diff")
	prog := p.deps.Progress
	rep := &Report{Previous: filepath.Base(previousPath)}
	if previousPath == "" {
		rep.Previous = ""
	}

	schema, err := p.deps.Source.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("get schema: %w", err)
	}

	var (
		existing map[types.Key]types.Row
		since    time.Time
	)
	if previousPath != "" {
		prog.Enter("read previous snapshot " + rep.Previous)
		existing, err = p.readPrevious(ctx, previousPath, outDir)
		prog.Exit()
		if err != nil {
			return nil, err
		}
		if p.cfg.Source.ModifiedColumn != "" {
			since, _ = artifact.TimestampFromName(previousPath)
		}
	}

	prog.Enter("read source " + p.cfg.Table)
	keys, err := p.deps.Source.PrimaryKeys(ctx)
	if err != nil {
		prog.Exit()
		return nil, fmt.Errorf("get primary keys: %w", err)
	}
	rows, err := p.deps.Source.ChangedRows(ctx, since)
	if err != nil {
		prog.Exit()
		return nil, fmt.Errorf("get rows: %w", err)
	}
	if !since.IsZero() {
		prog.Note("rows modified after " + types.FormatTime(since))
	}

	res, err := diff.Compute(rows, keys, existing, diff.Options{
		PrimaryKey: p.cfg.PrimaryKey,
		Schema:     schema,
	})
	prog.Exit()
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", p.cfg.Table, err)
	}
	rep.Summary = res.Summary
	s := res.Summary
	logger.Info("%d added, %d modified, %d deleted, %d unchanged, %d skipped",
		s.Added, s.Modified, s.Deleted, s.Unchanged, s.Skipped)

	if s.TableEmptied {
		logger.Warn("table %s was emptied: all %d previously published rows are deleted", p.cfg.Table, s.Deleted)
		if p.cfg.RefuseEmptied {
			return rep, fmt.Errorf("%s: %w", p.cfg.Table, types.ErrTableEmptied)
		}
	}
	if !s.Changed() {
		rep.NoChanges = true
		return rep, nil
	}

	if err := p.writeArtifacts(ctx, outDir, now, schema, res, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func (p *Pipeline) readPrevious(ctx context.Context, path, scratch string) (map[types.Key]types.Row, error) {
	if compress.HasExtension(p.deps.Compressor, path) {
		tmp, err := os.CreateTemp(scratch, ".previous-*.db")
		if err != nil {
			return nil, fmt.Errorf("creating scratch file: %w", err)
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if err := compress.UnFile(p.deps.Compressor, path, tmp.Name()); err != nil {
			return nil, fmt.Errorf("decompressing previous snapshot: %w", err)
		}
		path = tmp.Name()
	}

	rows, err := p.deps.Snapshots.ReadAll(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read previous snapshot: %w", err)
	}
	return diff.Index(rows, p.cfg.PrimaryKey), nil
}

func (p *Pipeline) writeArtifacts(ctx context.Context, outDir string, now time.Time, schema types.Schema, res *diff.Result, rep *Report) error {
	prog := p.deps.Progress

	prog.Enter("build snapshot")
	snap, err := artifact.BuildSnapshot(ctx, p.deps.Snapshots, p.deps.Compressor,
		filepath.Join(outDir, artifact.SnapshotName(p.cfg.OutputPrefix, now)), schema, res.Reconciled)
	prog.Exit()
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	prog.Enter("write changeset")
	cs, err := artifact.WriteChangeset(p.deps.Compressor,
		filepath.Join(outDir, artifact.ChangesetName(p.cfg.OutputPrefix, now)), res.Changeset)
	prog.Exit()
	if err != nil {
		os.Remove(snap.Path)
		return fmt.Errorf("write changeset: %w", err)
	}

	rep.Snapshot = &snap
	rep.Changeset = &cs
	return nil
}

// Run performs one full publish cycle against the remote store. A run with
// no changes publishes nothing and leaves the manifest untouched. Local
// temporaries are removed whether the run succeeds or fails.
func (p *Pipeline) Run(ctx context.Context) (rep *Report, err error) {
	if p.deps.Remote == nil {
		return nil, types.ErrRemoteEmpty
	}
	workDir := p.cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	now := p.deps.Now()

	lockName := ""
	if p.cfg.Remote.Lock {
		lockName = LockName
	}

	logger.Section("Remote")
	session, err := publish.Open(ctx, p.deps.Remote, p.deps.Compressor, p.deps.Progress, publish.Options{
		ManifestName: p.cfg.Manifest.Name,
		ChecksumName: p.cfg.Manifest.ChecksumName,
		MaxVersions:  p.cfg.MaxPreviousVersions,
		WorkDir:      workDir,
		LockName:     lockName,
	})
	if err != nil {
		return nil, fmt.Errorf("open remote session: %w", err)
	}
	defer session.Cleanup()

	if err := session.Lock(ctx, publish.Owner(now)); err != nil {
		return nil, err
	}
	defer func() {
		if uerr := session.Unlock(context.WithoutCancel(ctx)); uerr != nil {
			logger.Warn("release lock: %v", uerr)
			err = errors.Join(err, uerr)
		}
	}()

	m, err := session.FetchManifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	logger.Debug("manifest has %d entries", len(m))

	previous := ""
	if latest, ok := artifact.LatestSnapshot(m); ok {
		previous, err = session.FetchSnapshot(ctx, latest)
		if err != nil {
			return nil, fmt.Errorf("fetch previous snapshot: %w", err)
		}
	}

	outDir, err := os.MkdirTemp(workDir, "run-")
	if err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	rep, err = p.generate(ctx, previous, outDir, now)
	if err != nil {
		return rep, err
	}
	if rep.NoChanges {
		logger.Info("no changes in %s; nothing to publish", p.cfg.Table)
		return rep, nil
	}

	logger.Section("Publish")
	for _, a := range []*types.Artifact{rep.Snapshot, rep.Changeset} {
		if err := session.Publish(ctx, a.Name, a.Path); err != nil {
			return rep, fmt.Errorf("publish %s: %w", a.Name, err)
		}
		m = m.Upsert(a.Entry())
		rep.Published = append(rep.Published, a.Name)
	}
	if err := session.PublishManifest(ctx, m); err != nil {
		return rep, fmt.Errorf("publish manifest: %w", err)
	}
	rep.Published = append(rep.Published, session.ManifestFile(), p.manifestChecksumName())
	return rep, nil
}

func (p *Pipeline) manifestChecksumName() string {
	if p.cfg.Manifest.ChecksumName != "" {
		return p.cfg.Manifest.ChecksumName
	}
	return types.DefaultChecksumName
}

// Every calls fn immediately and then once per interval until ctx is
// cancelled. A failing call is logged and the loop continues.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("run failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
