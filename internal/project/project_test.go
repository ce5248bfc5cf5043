package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/gifstudio-api/internal/history"
	"github.com/maauso/gifstudio-api/internal/media"
)

func newProject(t *testing.T, maxHistory int) *Project {
	t.Helper()
	p, err := New("demo", Settings{}, maxHistory)
	require.NoError(t, err)
	return p
}

func frame(name string) Frame {
	return NewFrame(name, "/data/assets/"+name+".png", "/data/assets/"+name+"_preview.png")
}

func frameNames(frames []Frame) []string {
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = f.Name
	}
	return names
}

func intPtr(v int) *int { return &v }

func TestNew(t *testing.T) {
	p := newProject(t, 5)

	v := p.View()
	assert.Contains(t, v.ID, "prj-")
	assert.Equal(t, "demo", v.Name)
	assert.NotNil(t, v.Frames)
	assert.Empty(t, v.Frames)
	assert.Equal(t, DefaultSettings(), v.Settings)
	assert.Equal(t, 1, v.History.Length, "empty frame list is the first snapshot")
	assert.Equal(t, 0, v.History.Cursor)
	assert.False(t, v.History.CanUndo)
	assert.Equal(t, 5, v.History.MaxHistory)
}

func TestNew_DefaultName(t *testing.T) {
	p, err := New("", Settings{}, 5)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", p.View().Name)
}

func TestNew_Rejects(t *testing.T) {
	_, err := New("x", Settings{FPS: 120}, 5)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = New("x", Settings{}, 0)
	assert.ErrorIs(t, err, history.ErrInvalidMaxHistory)
}

func TestAppendFrames_IsOneEdit(t *testing.T) {
	p := newProject(t, 10)

	p.AppendFrames(frame("a"), frame("b"), frame("c"))

	assert.Equal(t, []string{"a", "b", "c"}, frameNames(p.Frames()))
	assert.Equal(t, 2, p.HistoryState().Length)

	require.True(t, p.Undo())
	assert.Empty(t, p.Frames(), "undo of the first edit restores the empty project")
}

func TestAppendFrames_NothingIsNoEdit(t *testing.T) {
	p := newProject(t, 10)
	p.AppendFrames()
	assert.Equal(t, 1, p.HistoryState().Length)
}

func TestRemoveFrame(t *testing.T) {
	p := newProject(t, 10)
	a, b := frame("a"), frame("b")
	p.AppendFrames(a, b)

	removed, err := p.RemoveFrame(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, removed)
	assert.Equal(t, []string{"b"}, frameNames(p.Frames()))

	_, err = p.RemoveFrame("frm-missing")
	assert.ErrorIs(t, err, ErrFrameNotFound)
	assert.Equal(t, 3, p.HistoryState().Length, "failed edit records nothing")
}

func TestMoveFrame(t *testing.T) {
	p := newProject(t, 10)
	a, b, c := frame("a"), frame("b"), frame("c")
	p.AppendFrames(a, b, c)

	require.NoError(t, p.MoveFrame(a.ID, 2))
	assert.Equal(t, []string{"b", "c", "a"}, frameNames(p.Frames()))

	require.NoError(t, p.MoveFrame(a.ID, 0))
	assert.Equal(t, []string{"a", "b", "c"}, frameNames(p.Frames()))

	before := p.HistoryState().Length
	require.NoError(t, p.MoveFrame(b.ID, 1))
	assert.Equal(t, before, p.HistoryState().Length, "no-op move records nothing")

	assert.ErrorIs(t, p.MoveFrame(a.ID, 3), ErrInvalidIndex)
	assert.ErrorIs(t, p.MoveFrame(a.ID, -1), ErrInvalidIndex)
	assert.ErrorIs(t, p.MoveFrame("frm-missing", 0), ErrFrameNotFound)
}

func TestSetFrameDelay(t *testing.T) {
	p := newProject(t, 10)
	a := frame("a")
	p.AppendFrames(a)

	require.NoError(t, p.SetFrameDelay(a.ID, intPtr(250)))
	got, err := p.Frame(a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DelayMs)
	assert.Equal(t, 250, *got.DelayMs)
	assert.Equal(t, int64(250), got.Delay().Milliseconds())

	require.NoError(t, p.SetFrameDelay(a.ID, nil))
	got, _ = p.Frame(a.ID)
	assert.Nil(t, got.DelayMs)
	assert.Zero(t, got.Delay())

	assert.ErrorIs(t, p.SetFrameDelay(a.ID, intPtr(-1)), ErrInvalidDelay)
	assert.ErrorIs(t, p.SetFrameDelay("frm-missing", intPtr(1)), ErrFrameNotFound)
}

func TestSetFrameDelay_DoesNotAlterSnapshots(t *testing.T) {
	p := newProject(t, 10)
	a := frame("a")
	p.AppendFrames(a)

	require.NoError(t, p.SetFrameDelay(a.ID, intPtr(100)))
	require.NoError(t, p.SetFrameDelay(a.ID, intPtr(500)))

	require.True(t, p.Undo())
	got, _ := p.Frame(a.ID)
	require.NotNil(t, got.DelayMs)
	assert.Equal(t, 100, *got.DelayMs)
}

func TestUndoRedo_DoNotAddEntries(t *testing.T) {
	p := newProject(t, 10)
	a, b := frame("a"), frame("b")
	p.AppendFrames(a)
	p.AppendFrames(b)
	require.Equal(t, 3, p.HistoryState().Length)

	require.True(t, p.Undo())
	assert.Equal(t, []string{"a"}, frameNames(p.Frames()))
	assert.Equal(t, 3, p.HistoryState().Length)
	assert.True(t, p.HistoryState().CanRedo)

	require.True(t, p.Redo())
	assert.Equal(t, []string{"a", "b"}, frameNames(p.Frames()))
	assert.Equal(t, 3, p.HistoryState().Length)

	assert.False(t, p.Redo())
}

func TestEditAfterUndo_DiscardsRedo(t *testing.T) {
	p := newProject(t, 10)
	a, b, c := frame("a"), frame("b"), frame("c")
	p.AppendFrames(a)
	p.AppendFrames(b)

	require.True(t, p.Undo())
	p.AppendFrames(c)

	assert.Equal(t, []string{"a", "c"}, frameNames(p.Frames()))
	assert.False(t, p.HistoryState().CanRedo)
	assert.False(t, p.Redo())
}

func TestUndo_NothingToUndo(t *testing.T) {
	p := newProject(t, 10)
	assert.False(t, p.Undo())
	assert.False(t, p.Redo())
}

func TestHistoryIsBounded(t *testing.T) {
	p := newProject(t, 3)
	for _, n := range []string{"a", "b", "c", "d"} {
		p.AppendFrames(frame(n))
	}

	h := p.HistoryState()
	assert.Equal(t, 3, h.Length)
	assert.Equal(t, 2, h.Cursor)
	require.Len(t, h.Entries, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{h.Entries[0].FrameCount, h.Entries[1].FrameCount, h.Entries[2].FrameCount})

	require.True(t, p.Undo())
	require.True(t, p.Undo())
	assert.False(t, p.Undo())
	assert.Equal(t, []string{"a", "b"}, frameNames(p.Frames()))
}

func TestClearHistory_KeepsCurrentAsBase(t *testing.T) {
	p := newProject(t, 10)
	p.AppendFrames(frame("a"))
	p.AppendFrames(frame("b"))

	p.ClearHistory()

	h := p.HistoryState()
	assert.Equal(t, 1, h.Length)
	assert.Equal(t, 0, h.Cursor)
	assert.False(t, h.CanUndo)
	assert.Equal(t, []string{"a", "b"}, frameNames(p.Frames()))

	p.AppendFrames(frame("c"))
	require.True(t, p.Undo())
	assert.Equal(t, []string{"a", "b"}, frameNames(p.Frames()))
}

func TestUpdateSettings(t *testing.T) {
	p := newProject(t, 10)
	p.AppendFrames(frame("a"))

	err := p.UpdateSettings(Settings{
		Format:  media.FormatWebP,
		FPS:     24,
		Width:   320,
		Quality: 90,
		Overlay: &media.Overlay{Text: "hi"},
	})
	require.NoError(t, err)

	s := p.Settings()
	assert.Equal(t, media.FormatWebP, s.Format)
	assert.Equal(t, 24, s.FPS)
	require.NotNil(t, s.Overlay)
	assert.Equal(t, media.PositionBottomRight, s.Overlay.Position)
	assert.Equal(t, 1.0, s.Overlay.Opacity)
	assert.Equal(t, media.DefaultMargin, s.Overlay.Margin)

	assert.Equal(t, 2, p.HistoryState().Length, "settings are outside the timeline")

	s.Overlay.Text = "mutated"
	assert.Equal(t, "hi", p.Settings().Overlay.Text, "Settings returns a copy")
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"defaults", DefaultSettings(), false},
		{"bad format", Settings{Format: "avi", FPS: 10, Quality: 80}, true},
		{"fps low", Settings{Format: media.FormatGIF, FPS: 0, Quality: 80}, true},
		{"width too small", Settings{Format: media.FormatGIF, FPS: 10, Width: 8, Quality: 80}, true},
		{"height too big", Settings{Format: media.FormatGIF, FPS: 10, Height: 5000, Quality: 80}, true},
		{"mp4 odd", Settings{Format: media.FormatMP4, FPS: 10, Width: 321, Quality: 80}, true},
		{"mp4 even", Settings{Format: media.FormatMP4, FPS: 10, Width: 320, Height: 240, Quality: 80}, false},
		{"negative loop", Settings{Format: media.FormatGIF, FPS: 10, Loop: -1, Quality: 80}, true},
		{"quality high", Settings{Format: media.FormatGIF, FPS: 10, Quality: 101}, true},
		{"bad position", Settings{Format: media.FormatGIF, FPS: 10, Quality: 80, Overlay: &media.Overlay{Position: "middle"}}, true},
		{"bad opacity", Settings{Format: media.FormatGIF, FPS: 10, Quality: 80, Overlay: &media.Overlay{Opacity: 2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSettings)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReferencedAssets_CoversSnapshots(t *testing.T) {
	p := newProject(t, 10)
	a, b := frame("a"), frame("b")
	p.AppendFrames(a, b)

	_, err := p.RemoveFrame(a.ID)
	require.NoError(t, err)
	require.NoError(t, p.UpdateSettings(Settings{Overlay: &media.Overlay{ImagePath: "/data/assets/logo.png"}}))

	assets := p.ReferencedAssets()
	assert.Equal(t, []string{
		"/data/assets/a.png",
		"/data/assets/a_preview.png",
		"/data/assets/b.png",
		"/data/assets/b_preview.png",
		"/data/assets/logo.png",
	}, assets)
}

func TestView_IsACopy(t *testing.T) {
	p := newProject(t, 10)
	p.AppendFrames(frame("a"))

	v := p.View()
	v.Frames[0].Name = "mutated"

	assert.Equal(t, "a", p.Frames()[0].Name)
}

func TestRename(t *testing.T) {
	p := newProject(t, 10)
	p.Rename("renamed")
	assert.Equal(t, "renamed", p.View().Name)
	p.Rename("")
	assert.Equal(t, "renamed", p.View().Name)
}

func TestReferencedAssets_KeepsReplacedOverlayImage(t *testing.T) {
	p := newProject(t, 10)

	require.NoError(t, p.UpdateSettings(Settings{Overlay: &media.Overlay{ImagePath: "/data/assets/old.png"}}))
	require.NoError(t, p.UpdateSettings(Settings{Overlay: &media.Overlay{ImagePath: "/data/assets/new.png"}}))
	require.NoError(t, p.UpdateSettings(Settings{}))

	assert.Equal(t, []string{"/data/assets/new.png", "/data/assets/old.png"}, p.ReferencedAssets())
	assert.Nil(t, p.Settings().Overlay)
}

func TestReferencedAssets_KeepsEvictedFrames(t *testing.T) {
	p := newProject(t, 3)
	a, b := frame("a"), frame("b")
	p.AppendFrames(a, b)

	_, err := p.RemoveFrame(a.ID)
	require.NoError(t, err)
	for _, d := range []int{100, 200, 300} {
		require.NoError(t, p.SetFrameDelay(b.ID, intPtr(d)))
	}
	for p.Undo() {
	}
	require.Equal(t, []string{"b"}, frameNames(p.Frames()), "a should have left the timeline")

	assert.Equal(t, []string{
		"/data/assets/a.png",
		"/data/assets/a_preview.png",
		"/data/assets/b.png",
		"/data/assets/b_preview.png",
	}, p.ReferencedAssets())
}

func TestReferencedAssets_KeepsFramesAfterClearHistory(t *testing.T) {
	p := newProject(t, 10)
	a := frame("a")
	p.AppendFrames(a)

	_, err := p.RemoveFrame(a.ID)
	require.NoError(t, err)
	p.ClearHistory()

	assert.False(t, p.Undo())
	assert.Equal(t, []string{"/data/assets/a.png", "/data/assets/a_preview.png"}, p.ReferencedAssets())
}

func TestFrames_DelayIsNotShared(t *testing.T) {
	p := newProject(t, 10)
	delay := 100
	a := frame("a")
	a.DelayMs = &delay
	p.AppendFrames(a)

	delay = 999
	got, err := p.Frame(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, *got.DelayMs)

	*got.DelayMs = 1
	*p.Frames()[0].DelayMs = 2
	*p.View().Frames[0].DelayMs = 3

	require.NoError(t, p.SetFrameDelay(a.ID, intPtr(500)))
	require.True(t, p.Undo())
	got, err = p.Frame(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, *got.DelayMs)
}

func TestReorderFrames(t *testing.T) {
	p := newProject(t, 10)
	p.AppendFrames(frame("a"), frame("b"), frame("c"))
	ids := func() []string {
		var out []string
		for _, f := range p.Frames() {
			out = append(out, f.ID)
		}
		return out
	}
	orig := ids()
	before := p.HistoryState().Length

	require.NoError(t, p.ReorderFrames([]string{orig[2], orig[0], orig[1]}))
	assert.Equal(t, []string{"c", "a", "b"}, frameNames(p.Frames()))
	assert.Equal(t, before+1, p.HistoryState().Length)

	require.True(t, p.Undo())
	assert.Equal(t, []string{"a", "b", "c"}, frameNames(p.Frames()))

	require.NoError(t, p.ReorderFrames(orig))
	assert.Equal(t, before, p.HistoryState().Cursor+1, "current order records nothing")
}

func TestReorderFrames_Rejects(t *testing.T) {
	p := newProject(t, 10)
	p.AppendFrames(frame("a"), frame("b"))
	a, b := p.Frames()[0].ID, p.Frames()[1].ID

	assert.ErrorIs(t, p.ReorderFrames([]string{a}), ErrInvalidOrder)
	assert.ErrorIs(t, p.ReorderFrames([]string{a, a}), ErrInvalidOrder)
	assert.ErrorIs(t, p.ReorderFrames([]string{a, "frm-missing"}), ErrFrameNotFound)
	assert.Equal(t, []string{a, b}, []string{p.Frames()[0].ID, p.Frames()[1].ID})
}
