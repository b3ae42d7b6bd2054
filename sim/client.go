// Defines the Client struct that models a simulated client waiting to hand its files to a host.
// Tracks arrival time and the remaining file pack; the smallest file is always sent first.

package sim

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ClientID uniquely identifies a client for the lifetime of a simulation.
type ClientID int64

// HostID uniquely identifies a host.
type HostID int

// File is a single element of a client's file pack.
type File struct {
	Index  int     // Position in the pack as generated (stable across sends)
	Volume float64 // Size of the file; always positive
}

func (f File) String() string {
	return fmt.Sprintf("file#%d(%.0f)", f.Index, f.Volume)
}

// Client models a single client's lifecycle in the simulation.
// ID and ArrivalTime are fixed once the client is queued; Files only shrinks
// through TakeSmallest and is kept sorted by ascending volume.
type Client struct {
	ID          ClientID
	ArrivalTime time.Time // Moment the client (re-)entered the queue
	Files       []File    // Remaining file pack, ascending by volume

	// FirstArrival is the original arrival, preserved across re-enqueues.
	FirstArrival time.Time
	// Sent counts files already handed to hosts.
	Sent int
	// Failures counts failed transfers of the file currently at the head of the pack.
	Failures int
}

// NewClient builds a client from raw volumes. The pack must be non-empty and
// every volume positive and finite.
func NewClient(id ClientID, arrival time.Time, volumes ...float64) (*Client, error) {
	files := make([]File, len(volumes))
	for i, v := range volumes {
		files[i] = File{Index: i, Volume: v}
	}
	c := &Client{ID: id, ArrivalTime: arrival, FirstArrival: arrival, Files: files}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.sortFiles()
	return c, nil
}

// Validate checks the file-pack invariants required for a client to be queued.
func (c *Client) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil client", ErrInvalidInput)
	}
	if len(c.Files) == 0 {
		return fmt.Errorf("%w: client %d has an empty file pack", ErrInvalidInput, c.ID)
	}
	for _, f := range c.Files {
		if !(f.Volume > 0) || math.IsInf(f.Volume, 0) {
			return fmt.Errorf("%w: client %d file %d has volume %v", ErrInvalidInput, c.ID, f.Index, f.Volume)
		}
	}
	return nil
}

func (c *Client) sortFiles() {
	sort.SliceStable(c.Files, func(i, j int) bool {
		if c.Files[i].Volume != c.Files[j].Volume {
			return c.Files[i].Volume < c.Files[j].Volume
		}
		return c.Files[i].Index < c.Files[j].Index
	})
}

// Smallest returns the smallest remaining file. ok is false on an empty pack.
func (c *Client) Smallest() (f File, ok bool) {
	if len(c.Files) == 0 {
		return File{}, false
	}
	return c.Files[0], true
}

// SmallestVolume returns v, the volume of the smallest remaining file, or 0 on an empty pack.
func (c *Client) SmallestVolume() float64 {
	f, ok := c.Smallest()
	if !ok {
		return 0
	}
	return f.Volume
}

// TakeSmallest removes and returns the smallest remaining file.
// Panics on an empty pack: callers only take from clients that passed Validate.
func (c *Client) TakeSmallest() File {
	if len(c.Files) == 0 {
		panic(fmt.Sprintf("TakeSmallest: client %d has an empty file pack", c.ID))
	}
	f := c.Files[0]
	c.Files = c.Files[1:]
	c.Sent++
	return f
}

// PutBack returns a file to the pack, keeping it sorted. Used when a failed
// transfer is retried.
func (c *Client) PutBack(f File) {
	c.Files = append(c.Files, f)
	c.sortFiles()
	c.Sent--
}

// Remaining returns the number of files still in the pack.
func (c *Client) Remaining() int {
	return len(c.Files)
}

// This method returns a human-readable string representation of a Client.
func (c Client) String() string {
	return fmt.Sprintf("Client: (ID: %d, Files: %d, SmallestVolume: %v, ArrivalTime: %s)",
		c.ID, len(c.Files), c.SmallestVolume(), c.ArrivalTime.Format(time.RFC3339Nano))
}

// HostState is the lifecycle state of a host.
type HostState string

const (
	HostIdle HostState = "idle"
	HostBusy HostState = "busy"
)
