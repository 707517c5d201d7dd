package feed

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"Feedsync/internal/core/feeds"
)

const (
	liveReadTimeout  = 60 * time.Second
	livePingInterval = 30 * time.Second
	liveWriteTimeout = 10 * time.Second
	liveSnapshotSize = 50
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Auth is enforced by the bearer middleware before the upgrade
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Snapshot is one live-query frame: the newest cached items of a partition
type Snapshot struct {
	Feed            feeds.Kind       `json:"feed"`
	Items           []feeds.FeedItem `json:"items"`
	EndOfPagination bool             `json:"endOfPagination"`
}

// HandleLive streams a snapshot on connect and after every committed change
// GET /feeds/{feed}/live
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	partition, ok := h.partition(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		log.Printf("live %s: upgrade failed: %v", partition.Kind, err)
		return
	}

	changes, unsubscribe := partition.Cache.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() { closeOnce.Do(func() { close(done) }) }
	defer func() {
		closeDone()
		_ = conn.Close()
	}()

	if err := conn.SetReadDeadline(time.Now().Add(liveReadTimeout)); err != nil {
		log.Printf("live %s: failed to set read deadline: %v", partition.Kind, err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
	})

	// Reader: clients never send data frames, but reading drives pong and close handling
	go func() {
		defer closeDone()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	send := func() bool {
		items, err := partition.Cache.List(ctx, liveSnapshotSize, nil)
		if err != nil {
			log.Printf("live %s: failed to read cache: %v", partition.Kind, err)
			return false
		}
		if items == nil {
			items = []feeds.FeedItem{}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		err = conn.WriteJSON(Snapshot{
			Feed:            partition.Kind,
			Items:           items,
			EndOfPagination: partition.Pager.EndOfPagination(),
		})
		if err != nil {
			log.Printf("live %s: write failed: %v", partition.Kind, err)
			return false
		}
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-changes:
			if !send() {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(liveWriteTimeout)); err != nil {
				log.Printf("live %s: ping failed: %v", partition.Kind, err)
				return
			}
		}
	}
}
