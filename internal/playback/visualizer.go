package playback

import (
	"github.com/Mavwarf/quizspeak/internal/audio"
	"github.com/Mavwarf/quizspeak/internal/eventloop"
)

// Visualizer samples an analyser once per frame while a session plays and
// reports the mean bin energy for the owning trigger. A silent or
// unrepresentative analyser only produces a flat level.
type Visualizer struct {
	sched   eventloop.Scheduler
	playing func() bool
	draw    func(id TriggerID, level float64)

	owner    TriggerID
	analyzer audio.Analyzer
	buf      []byte
	timer    eventloop.Timer
}

// NewVisualizer returns a stopped visualizer. playing reports whether
// frames should keep being scheduled; draw receives each level.
func NewVisualizer(sched eventloop.Scheduler, playing func() bool, draw func(TriggerID, float64)) *Visualizer {
	return &Visualizer{
		sched:   sched,
		playing: playing,
		draw:    draw,
		buf:     make([]byte, audio.FrequencyBinCount),
	}
}

// StartFor draws a first frame for id immediately and keeps drawing on
// each frame callback while playing holds. It replaces any previous run.
func (v *Visualizer) StartFor(id TriggerID, a audio.Analyzer) {
	v.Stop()
	v.owner = id
	v.analyzer = a
	v.frame()
}

// Stop cancels the pending frame. It does not close the analyser, which
// belongs to the caller.
func (v *Visualizer) Stop() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.owner = ""
	v.analyzer = nil
}

// Running reports whether a frame callback is scheduled.
func (v *Visualizer) Running() bool { return v.timer != nil }

func (v *Visualizer) frame() {
	v.timer = nil
	if v.analyzer == nil {
		return
	}
	v.analyzer.FrequencyData(v.buf)
	v.draw(v.owner, mean(v.buf))

	if v.playing() {
		v.timer = v.sched.Frame(v.frame)
	}
}

func mean(bins []byte) float64 {
	if len(bins) == 0 {
		return 0
	}
	sum := 0
	for _, b := range bins {
		sum += int(b)
	}
	return float64(sum) / float64(len(bins))
}
