// Package trace records bounded histories of signal levels for display.
//
// Each channel keeps the most recent MaxPoints (cycle, value) samples,
// dropping the oldest when full.
package trace

import (
	"fmt"
	"sort"
)

// MaxPoints is the number of points a channel holds.
const MaxPoints = 64

// Point is one sample of a channel.
type Point struct {
	Cycle uint64 `json:"cycle" yaml:"cycle"`
	Value uint8  `json:"value" yaml:"value"`
}

// Channel is a fixed-size history of one signal.
type Channel struct {
	name   string
	points [MaxPoints]Point
	first  int
	count  int
}

// NewChannel creates an empty channel.
func NewChannel(name string) *Channel {
	return &Channel{name: name}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// Len returns the number of points held.
func (c *Channel) Len() int {
	return c.count
}

// Add appends a point. Points must be added in cycle order; a point older
// than the newest one is rejected.
func (c *Channel) Add(cycle uint64, value uint8) error {
	if c.count > 0 {
		if last := c.points[(c.first+c.count-1)%MaxPoints]; cycle < last.Cycle {
			return fmt.Errorf("trace %s: point at cycle %d is older than %d",
				c.name, cycle, last.Cycle)
		}
	}

	if c.count == MaxPoints {
		c.first = (c.first + 1) % MaxPoints
		c.count--
	}

	c.points[(c.first+c.count)%MaxPoints] = Point{Cycle: cycle, Value: value}
	c.count++

	return nil
}

// Points returns the held points, oldest first.
func (c *Channel) Points() []Point {
	out := make([]Point, c.count)
	for i := range out {
		out[i] = c.points[(c.first+i)%MaxPoints]
	}
	return out
}

// Last returns the newest point.
func (c *Channel) Last() (Point, bool) {
	if c.count == 0 {
		return Point{}, false
	}
	return c.points[(c.first+c.count-1)%MaxPoints], true
}

// Since returns the points at or after cycle, plus the last point before
// it so a plot can start at the level the signal held.
func (c *Channel) Since(cycle uint64) []Point {
	points := c.Points()
	i := sort.Search(len(points), func(i int) bool {
		return points[i].Cycle >= cycle
	})
	if i > 0 {
		i--
	}
	return points[i:]
}

// Reset drops all points.
func (c *Channel) Reset() {
	c.first = 0
	c.count = 0
}

// Recorder holds named channels.
type Recorder struct {
	channels map[string]*Channel
	order    []string
}

// NewRecorder creates a recorder with the named channels.
func NewRecorder(names ...string) *Recorder {
	r := &Recorder{channels: make(map[string]*Channel)}
	for _, name := range names {
		r.Channel(name)
	}
	return r
}

// Channel returns the named channel, creating it if needed.
func (r *Recorder) Channel(name string) *Channel {
	if ch, ok := r.channels[name]; ok {
		return ch
	}

	ch := NewChannel(name)
	r.channels[name] = ch
	r.order = append(r.order, name)
	return ch
}

// Record adds a point to the named channel.
func (r *Recorder) Record(name string, cycle uint64, value uint8) error {
	return r.Channel(name).Add(cycle, value)
}

// Names returns the channel names in creation order.
func (r *Recorder) Names() []string {
	return append([]string(nil), r.order...)
}

// Reset drops the points of every channel.
func (r *Recorder) Reset() {
	for _, ch := range r.channels {
		ch.Reset()
	}
}
