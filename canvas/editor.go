package canvas

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// SaveStatus is the autosave state surfaced to the user.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)

// DiagramRecord is a stored diagram as returned by the store.
type DiagramRecord struct {
	ID          int64
	Name        string
	Description string
	Objects     string // JSON array of objects
	BOQData     string // JSON array of BOQ items
	ProjectID   int64
	UpdatedAt   time.Time
}

// DiagramPayload is the save payload.
type DiagramPayload struct {
	Name        string
	Description string
	Objects     string
	BOQData     string
	ProjectID   int64
}

// Store loads and persists diagrams. The HTTP client in package client implements it;
// tests supply fakes.
type Store interface {
	Diagram(ctx context.Context, id int64) (DiagramRecord, error)
	LatestDiagram(ctx context.Context, projectID int64) (DiagramRecord, error)
	CreateDiagram(ctx context.Context, p DiagramPayload) (DiagramRecord, error)
	UpdateDiagram(ctx context.Context, id int64, p DiagramPayload) (DiagramRecord, error)
}

// Remote push events that trigger a reload.
const (
	EventDiagramUpdated = "diagram_updated"
	EventNewDiagram     = "new_diagram"
)

const (
	saveDebounce       = 1000 * time.Millisecond
	syncNoticeDuration = 3 * time.Second
	saveRequestTimeout = 10 * time.Second
)

// Config wires an Editor to its collaborators.
type Config struct {
	Store     Store
	DiagramID int64 // load this diagram; 0 picks the project's most recently updated
	ProjectID int64
	// CanEdit is the host session's authorization predicate. Mutations are refused
	// when it returns false; viewing, selection and pan/zoom are not gated.
	CanEdit func() bool

	ViewportWidth  float64
	ViewportHeight float64

	Logger *slog.Logger

	// SaveDelay overrides the autosave quiet period; tests shorten it.
	SaveDelay time.Duration
	// Now overrides the clock; tests pin it.
	Now func() time.Time
}

// Editor is one in-memory editing session over a diagram: the scene, selection,
// camera, clipboard and autosave loop. All exported methods are safe for concurrent
// use; state is owned by the session and never shared across editors.
type Editor struct {
	mu sync.Mutex

	scene *Scene
	sel   Selection
	view  View
	boq   []BOQItem

	clipboard []*Object
	guides    []Guide

	mode            inputMode
	marquee         Marquee
	marqueeAdditive bool
	panStart        struct{ sx, sy float64 }
	panStartView    View
	drag            dragState
	lastMiddleDown  time.Time

	store     Store
	canEdit   func() bool
	diagramID int64
	projectID int64
	name      string
	desc      string

	viewportW float64
	viewportH float64

	saveStatus  SaveStatus
	saveTimer   *time.Timer
	saveDelay   time.Duration
	savedObjs   string
	savedBOQ    string
	firstLoaded bool

	syncNoticeUntil time.Time
	syncNotice      string

	log *slog.Logger
	now func() time.Time
}

type inputMode int

const (
	modeIdle inputMode = iota
	modePan
	modeMarquee
	modeDrag
)

type dragState struct {
	primaryID        string
	startSX, startSY float64 // pointer at drag start, screen
	startWX, startWY float64 // primary object at drag start, world
	offsetX, offsetY float64 // ephemeral world offset, committed on release
	moved            bool
}

// NewEditor creates an editor session with an empty scene. Call Load to pull the
// diagram from the store.
func NewEditor(cfg Config) *Editor {
	e := &Editor{
		scene:      &Scene{Objects: []*Object{}},
		sel:        NewSelection(),
		view:       DefaultView(),
		boq:        []BOQItem{},
		store:      cfg.Store,
		canEdit:    cfg.CanEdit,
		diagramID:  cfg.DiagramID,
		projectID:  cfg.ProjectID,
		viewportW:  cfg.ViewportWidth,
		viewportH:  cfg.ViewportHeight,
		saveStatus: SaveIdle,
		saveDelay:  cfg.SaveDelay,
		log:        cfg.Logger,
		now:        cfg.Now,
	}
	if e.canEdit == nil {
		e.canEdit = func() bool { return false }
	}
	if e.saveDelay <= 0 {
		e.saveDelay = saveDebounce
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Load fetches the diagram (by id, or the project's latest) and replaces local
// state. A load failure leaves the editor usable with an empty scene. The camera is
// fit to content after the first successful load.
func (e *Editor) Load(ctx context.Context) {
	rec, err := e.fetch(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	first := !e.firstLoaded
	e.firstLoaded = true
	if err != nil {
		e.log.Warn("diagram load failed, starting empty", slog.Any("err", err))
		e.saveStatus = SaveIdle
		return
	}
	e.applyRecordLocked(rec, first)
	e.saveStatus = SaveSaved
}

func (e *Editor) fetch(ctx context.Context) (DiagramRecord, error) {
	e.mu.Lock()
	id, projectID := e.diagramID, e.projectID
	e.mu.Unlock()

	if id != 0 {
		rec, err := e.store.Diagram(ctx, id)
		if err != nil {
			return DiagramRecord{}, fmt.Errorf("load diagram %d: %w", id, err)
		}
		return rec, nil
	}
	rec, err := e.store.LatestDiagram(ctx, projectID)
	if err != nil {
		return DiagramRecord{}, fmt.Errorf("load latest diagram: %w", err)
	}
	return rec, nil
}

func (e *Editor) applyRecordLocked(rec DiagramRecord, fit bool) {
	objs, err := DecodeObjects(rec.Objects)
	if err != nil {
		e.log.Error("stored objects unreadable", slog.Int64("diagram_id", rec.ID), slog.Any("err", err))
		objs = []*Object{}
	}
	items, err := DecodeBOQ(rec.BOQData)
	if err != nil {
		e.log.Error("stored boq unreadable", slog.Int64("diagram_id", rec.ID), slog.Any("err", err))
		items = []BOQItem{}
	}

	e.scene = &Scene{Objects: objs}
	e.boq = items
	e.sel.Clear()
	e.guides = nil
	e.diagramID = rec.ID
	e.name = rec.Name
	e.desc = rec.Description
	if rec.ProjectID != 0 {
		e.projectID = rec.ProjectID
	}

	savedObjs, _ := EncodeObjects(objs)
	savedBOQ, _ := EncodeBOQ(items)
	e.savedObjs, e.savedBOQ = savedObjs, savedBOQ

	RecomputeBOQ(e.boq, e.scene.Objects)

	if fit {
		if box, ok := e.scene.BoundingBox(); ok {
			e.view = FitToContent(box, e.viewportW, e.viewportH)
		} else {
			e.view = DefaultView()
		}
	}
}

// HandleRemoteEvent reacts to a push notification for this diagram. Updated/created
// events reload server state wholesale (last write wins, no merge) unless a local
// drag is in progress, in which case the notification is dropped; the next event or
// autosave reconciles.
func (e *Editor) HandleRemoteEvent(ctx context.Context, event string) {
	if event != EventDiagramUpdated && event != EventNewDiagram {
		return
	}

	e.mu.Lock()
	if e.mode == modeDrag {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	rec, err := e.fetch(ctx)
	if err != nil {
		e.log.Warn("remote sync reload failed", slog.Any("err", err))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == modeDrag {
		return
	}
	e.applyRecordLocked(rec, false)
	e.syncNotice = "Diagram was just updated by another user"
	e.syncNoticeUntil = e.now().Add(syncNoticeDuration)
}

// markDirtyLocked recomputes derived BOQ values and arms the debounced save.
// Called with the mutex held after every scene or BOQ mutation.
func (e *Editor) markDirtyLocked() {
	RecomputeBOQ(e.boq, e.scene.Objects)

	objs, err := EncodeObjects(e.scene.Objects)
	if err != nil {
		e.log.Error("encode scene failed", slog.Any("err", err))
		return
	}
	items, err := EncodeBOQ(e.boq)
	if err != nil {
		e.log.Error("encode boq failed", slog.Any("err", err))
		return
	}
	if objs == e.savedObjs && items == e.savedBOQ {
		// Edited back to the saved state: nothing to persist.
		if e.saveTimer != nil {
			e.saveTimer.Stop()
			e.saveTimer = nil
		}
		if e.saveStatus == SaveSaving {
			e.saveStatus = SaveSaved
		}
		return
	}

	e.saveStatus = SaveSaving
	if e.saveTimer != nil {
		e.saveTimer.Stop()
	}
	e.saveTimer = time.AfterFunc(e.saveDelay, e.autosave)
}

// autosave runs on the debounce timer. Once the request is issued it is not
// canceled; a failure keeps local edits and flags SaveError, and the next mutation
// rearms the debounce. There is no automatic retry loop.
func (e *Editor) autosave() {
	e.mu.Lock()
	objs, err := EncodeObjects(e.scene.Objects)
	if err != nil {
		e.log.Error("encode scene failed", slog.Any("err", err))
		e.mu.Unlock()
		return
	}
	items, encErr := EncodeBOQ(e.boq)
	if encErr != nil {
		e.log.Error("encode boq failed", slog.Any("err", encErr))
		e.mu.Unlock()
		return
	}
	name := e.name
	if name == "" {
		name = "Diagram " + e.now().Format("2006-01-02 15:04:05")
	}
	desc := e.desc
	if desc == "" {
		desc = "Auto-saved"
	}
	payload := DiagramPayload{
		Name:        name,
		Description: desc,
		Objects:     objs,
		BOQData:     items,
		ProjectID:   e.projectID,
	}
	id := e.diagramID
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveRequestTimeout)
	defer cancel()

	var rec DiagramRecord
	var saveErr error
	if id == 0 {
		rec, saveErr = e.store.CreateDiagram(ctx, payload)
	} else {
		rec, saveErr = e.store.UpdateDiagram(ctx, id, payload)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if saveErr != nil {
		e.log.Error("autosave failed", slog.Int64("diagram_id", id), slog.Any("err", saveErr))
		e.saveStatus = SaveError
		return
	}
	if id == 0 && rec.ID != 0 {
		e.diagramID = rec.ID
	}
	e.savedObjs, e.savedBOQ = objs, items
	// Edits made while the request was in flight keep status at saving until their
	// own timer fires.
	if cur, _ := EncodeObjects(e.scene.Objects); cur == objs {
		e.saveStatus = SaveSaved
	}
	e.log.Debug("diagram autosaved", slog.Int64("diagram_id", e.diagramID))
}

// Flush forces a pending save immediately. Used on shutdown.
func (e *Editor) Flush() {
	e.mu.Lock()
	timer := e.saveTimer
	e.saveTimer = nil
	e.mu.Unlock()
	if timer != nil && timer.Stop() {
		e.autosave()
	}
}

// --- snapshot accessors for rendering ---

// Objects returns the paint-ordered object list. The slice is a copy; the objects
// are live and must be treated as read-only by renderers.
func (e *Editor) Objects() []*Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Object, len(e.scene.Objects))
	copy(out, e.scene.Objects)
	return out
}

// SelectedIDs returns the current selection in stable order.
func (e *Editor) SelectedIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.IDs()
}

// IsSelected reports selection membership.
func (e *Editor) IsSelected(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.Has(id)
}

// View returns the current camera.
func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Guides returns the active snap guide lines.
func (e *Editor) Guides() []Guide {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Guide, len(e.guides))
	copy(out, e.guides)
	return out
}

// MarqueeBox returns the live marquee rectangle in screen coordinates, and whether
// crossing mode is active, while a marquee drag is running.
func (e *Editor) MarqueeBox() (x, y, w, h float64, crossing, active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != modeMarquee {
		return 0, 0, 0, 0, false, false
	}
	x, y, w, h = e.marquee.Box()
	return x, y, w, h, e.marquee.Crossing(), true
}

// DragOffset returns the ephemeral world-space offset of the in-progress drag. The
// committed model is unchanged until release; renderers add this offset to every
// selected object.
func (e *Editor) DragOffset() (dx, dy float64, active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != modeDrag {
		return 0, 0, false
	}
	return e.drag.offsetX, e.drag.offsetY, true
}

// BOQItems returns a copy of the master table with current derived values.
func (e *Editor) BOQItems() []BOQItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]BOQItem, len(e.boq))
	copy(out, e.boq)
	return out
}

// ValueSummary returns the dashboard roll-up over the current scene and table.
func (e *Editor) ValueSummary() ValueSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SummarizeValues(e.boq, e.scene.Objects)
}

// SaveState returns the autosave status for user feedback.
func (e *Editor) SaveState() SaveStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveStatus
}

// DiagramID returns the persisted id, 0 before the first successful create.
func (e *Editor) DiagramID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.diagramID
}

// SyncNotice returns the transient remote-update message, if still fresh.
func (e *Editor) SyncNotice() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncNotice == "" || e.now().After(e.syncNoticeUntil) {
		return "", false
	}
	return e.syncNotice, true
}

func (e *Editor) newObjectID(kind ShapeKind) string {
	return fmt.Sprintf("%s-%d-%s", kind, e.now().UnixMilli(), randomSuffix(5))
}

func (e *Editor) arrayObjectID(templateID string, row, col int) string {
	return fmt.Sprintf("%s_arr_%d_r%d_c%d_%s", templateID, e.now().UnixMilli(), row, col, randomSuffix(5))
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}
