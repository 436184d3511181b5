package tap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tapkit/tapkit/internal/nameutil"
	"github.com/tapkit/tapkit/plugin"
	"github.com/tapkit/tapkit/singer"
	"github.com/tapkit/tapkit/state"
)

// DefaultStateInterval is how many records may pass between STATE
// messages.
const DefaultStateInterval = 10000

// streamOverride carries per-stream settings applied from a catalog.
type streamOverride struct {
	keyProperties  []string
	replicationKey string
	forcedMethod   string
	deselected     bool
}

// Tap drives discovery and sync for a set of streams.
type Tap struct {
	plugin.Base

	// StateInterval is the record count between interim STATE messages.
	StateInterval int

	streams   []Stream
	overrides map[string]*streamOverride
	tree      map[string]any
	out       *singer.Writer
	warned    map[string]bool
}

// New returns a Tap named name writing messages to stdout.
func New(name string) *Tap {
	return &Tap{
		Base:          plugin.NewBase(name),
		StateInterval: DefaultStateInterval,
		overrides:     map[string]*streamOverride{},
		tree:          map[string]any{},
		out:           singer.NewWriter(os.Stdout),
		warned:        map[string]bool{},
	}
}

// SetOutput redirects protocol messages, for tests.
func (t *Tap) SetOutput(w io.Writer) { t.out = singer.NewWriter(w) }

// AddStream registers a stream.
func (t *Tap) AddStream(s Stream) { t.streams = append(t.streams, s) }

// Streams returns the registered streams.
func (t *Tap) Streams() []Stream { return t.streams }

// State returns the shared state tree.
func (t *Tap) State() map[string]any { return t.tree }

// SetState seeds the state tree, usually from a --state file.
func (t *Tap) SetState(tree map[string]any) {
	if tree == nil {
		tree = map[string]any{}
	}
	t.tree = tree
}

// Discover builds a catalog from the registered streams with every stream
// selected.
func (t *Tap) Discover() *singer.Catalog {
	c := &singer.Catalog{}
	for _, s := range t.streams {
		entry := &singer.CatalogEntry{
			TapStreamID:   s.Name(),
			Stream:        s.Name(),
			Schema:        s.Schema(),
			KeyProperties: s.KeyProperties(),
		}
		md := entry.StreamMetadata()
		md[singer.MetaSelected] = true
		md[singer.MetaInclusion] = "available"
		if rk := s.ReplicationKey(); rk != "" {
			md[singer.MetaReplicationKey] = rk
			md[singer.MetaReplicationMethod] = singer.ReplicationIncremental
		} else {
			md[singer.MetaReplicationMethod] = singer.ReplicationFullTable
		}
		c.Streams = append(c.Streams, entry)
	}
	return c
}

// ApplyCatalog applies selection and per-stream overrides from a catalog.
func (t *Tap) ApplyCatalog(c *singer.Catalog) {
	for _, s := range t.streams {
		entry := c.GetStream(s.Name())
		if entry == nil {
			continue
		}
		ov := t.override(s.Name())
		ov.deselected = !entry.Selected()
		if keys := entry.TableKeyProperties(); len(keys) > 0 {
			ov.keyProperties = keys
		}
		if rk := entry.ReplicationKey(); rk != "" {
			ov.replicationKey = rk
		}
		if m := entry.ReplicationMethod(); m != "" {
			ov.forcedMethod = m
		}
	}
}

func (t *Tap) override(stream string) *streamOverride {
	ov, ok := t.overrides[stream]
	if !ok {
		ov = &streamOverride{}
		t.overrides[stream] = ov
	}
	return ov
}

func (t *Tap) selected(s Stream) bool {
	ov, ok := t.overrides[s.Name()]
	return !ok || !ov.deselected
}

func (t *Tap) keyProperties(s Stream) []string {
	if ov, ok := t.overrides[s.Name()]; ok && ov.keyProperties != nil {
		return ov.keyProperties
	}
	return s.KeyProperties()
}

func (t *Tap) replicationKey(s Stream) string {
	if ov, ok := t.overrides[s.Name()]; ok && ov.replicationKey != "" {
		return ov.replicationKey
	}
	return s.ReplicationKey()
}

// ReplicationMethod resolves the effective replication method for s:
// a catalog-forced method wins, then INCREMENTAL when a replication key is
// set, then FULL_TABLE.
func (t *Tap) ReplicationMethod(s Stream) string {
	if ov, ok := t.overrides[s.Name()]; ok && ov.forcedMethod != "" {
		return ov.forcedMethod
	}
	if t.replicationKey(s) != "" {
		return singer.ReplicationIncremental
	}
	return singer.ReplicationFullTable
}

// SyncAll syncs every selected stream in registration order.
func (t *Tap) SyncAll(ctx context.Context) error {
	synced := 0
	for _, s := range t.streams {
		if !t.selected(s) {
			t.Logger.Info("skipping deselected stream", "stream", s.Name())
			continue
		}
		if err := t.syncStream(ctx, s); err != nil {
			return fmt.Errorf("sync stream %q: %w", s.Name(), err)
		}
		synced++
	}
	if synced == 0 {
		t.Logger.Warn("no streams selected, nothing synced")
	}
	return nil
}

// TestConnection instantiates every selected stream and pulls at most one
// record from each.
func (t *Tap) TestConnection(ctx context.Context) error {
	for _, s := range t.streams {
		if !t.selected(s) {
			continue
		}
		it, err := s.Records(ctx, map[string]any{})
		if err != nil {
			return fmt.Errorf("connection test for stream %q: %w", s.Name(), err)
		}
		if _, err := it.Next(ctx); err != nil && !errors.Is(err, io.EOF) {
			_ = it.Close()
			return fmt.Errorf("connection test for stream %q: %w", s.Name(), err)
		}
		if err := it.Close(); err != nil {
			return fmt.Errorf("connection test for stream %q: %w", s.Name(), err)
		}
	}
	return nil
}

func (t *Tap) syncStream(ctx context.Context, s Stream) error {
	if err := nameutil.ValidateStreamName(s.Name()); err != nil {
		return err
	}
	method := t.ReplicationMethod(s)
	t.Logger.Info("beginning sync", "stream", s.Name(), "replication_method", method)

	state.WipeKeys(t.tree, s.Name(), state.InterimKeepKeys)

	if err := t.writeSchema(s); err != nil {
		return err
	}

	contexts := []map[string]any{nil}
	if p, ok := s.(Partitioned); ok {
		if parts := p.Partitions(); len(parts) > 0 {
			contexts = parts
		}
	}

	sent := 0
	for _, pctx := range contexts {
		bookmark := state.StreamState(t.tree, s.Name())
		if pctx != nil {
			bookmark = state.PartitionState(t.tree, s.Name(), pctx)
		}
		n, err := t.syncRecords(ctx, s, method, bookmark, sent)
		if err != nil {
			return err
		}
		sent += n
	}

	state.WipeKeys(t.tree, s.Name(), state.FinalKeepKeys)
	if err := t.writeState(); err != nil {
		return err
	}
	t.Logger.Info("completed sync", "stream", s.Name(), "records", sent)
	return nil
}

func (t *Tap) syncRecords(ctx context.Context, s Stream, method string, bookmark map[string]any, alreadySent int) (int, error) {
	it, err := s.Records(ctx, bookmark)
	if err != nil {
		return 0, err
	}
	defer func() { _ = it.Close() }()

	post, _ := s.(PostProcessor)
	interval := t.StateInterval
	if interval <= 0 {
		interval = DefaultStateInterval
	}

	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		row, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sent, err
		}
		if post != nil {
			row, err = post.PostProcess(row, bookmark)
			if err != nil {
				return sent, err
			}
			if row == nil {
				continue
			}
		}
		total := alreadySent + sent
		if total > 0 && total%interval == 0 {
			if err := t.writeState(); err != nil {
				return sent, err
			}
		}
		rec := ConformRecord(s.Schema(), row, func(prop string) { t.warnUnmapped(s.Name(), prop) })
		if err := t.out.Write(singer.NewRecordMessage(s.Name(), rec, time.Now().UTC())); err != nil {
			return sent, err
		}
		if method == singer.ReplicationIncremental || method == singer.ReplicationLogBased {
			if err := state.Advance(bookmark, s.Name(), t.replicationKey(s), rec); err != nil {
				return sent, err
			}
		}
		sent++
	}
	return sent, nil
}

func (t *Tap) writeSchema(s Stream) error {
	var bookmarkProps []string
	if rk := t.replicationKey(s); rk != "" {
		bookmarkProps = []string{rk}
	}
	return t.out.Write(singer.NewSchemaMessage(s.Name(), s.Schema(), t.keyProperties(s), bookmarkProps))
}

func (t *Tap) writeState() error {
	return t.out.Write(singer.NewStateMessage(t.tree))
}

// warnUnmapped logs a dropped property once per stream/property pair.
func (t *Tap) warnUnmapped(stream, property string) {
	key := stream + "\x00" + property
	if t.warned[key] {
		return
	}
	t.warned[key] = true
	t.Logger.Warn("property not in stream schema, ignoring", "stream", stream, "property", property)
}
