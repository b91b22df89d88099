package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"huddle/comments"
	"huddle/models"
	"huddle/syncer"
)

type ServerConfig struct {

	// CORS origin allowed to reach the local surface
	CORSOrigin string

	// Loader resolves stale cache keys through the REST client
	Loader *syncer.Loader

	// Toggler sets the viewer's reaction on posts
	Toggler *syncer.Toggler

	// Views is the mounted-view registry driven by the consumer
	Views *syncer.Views

	// Broadcaster re-broadcasts merged events to SSE clients
	Broadcaster *Broadcaster
}

// Broadcaster fans merged realtime events out to local SSE consumers.
type Broadcaster struct {
	sync.RWMutex
	clients map[string]chan interface{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan interface{}),
	}
}

func (b *Broadcaster) Broadcast(event interface{}) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.clients {
		select {
		case client <- event: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping event for client: %v", id)
		}
	}
}

func (b *Broadcaster) AddClient(key string, client chan interface{}) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = client
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Adding client to broadcaster")
}

func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.clients[key]; ok {
		close(client)
		delete(b.clients, key)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client)
		delete(b.clients, key)
	}
}

// eventName maps a merged event to its SSE event name.
func eventName(event interface{}) string {
	switch event.(type) {
	case models.NewPostEvent:
		return "new-post"
	case models.UpdateReactionEvent:
		return "update-reaction"
	case models.NewCommentEvent:
		return "new-comment"
	default:
		return ""
	}
}

// Returns a fiber.App serving the synced community state locally
func Server(config *ServerConfig) *fiber.App {

	bc := config.Broadcaster

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		stop := time.Now()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	if config.CORSOrigin != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     config.CORSOrigin,
			AllowHeaders:     "Cache-Control",
			AllowCredentials: true,
		}))
	}

	// Prometheus metrics
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	app.Get("/feed", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		posts, err := config.Loader.Feed(c.Context(), limit)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error loading feed")

			// Serve the last-known feed when the fetch failed but the
			// cache has something to show
			if len(posts) == 0 {
				return c.Status(502).JSON(fiber.Map{"message": "feed unavailable"})
			}
		}

		return c.JSON(fiber.Map{"posts": posts})
	})

	app.Get("/posts/:id", func(c *fiber.Ctx) error {
		post, ok := config.Loader.Post(c.Params("id"))
		if !ok {
			return c.Status(404).JSON(fiber.Map{"message": "post not cached"})
		}
		return c.JSON(post)
	})

	app.Post("/posts/:id/react", func(c *fiber.Ctx) error {
		var body struct {
			Reaction string `json:"reaction"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"message": "invalid body"})
		}

		err := config.Toggler.Toggle(c.Context(), c.Params("id"), body.Reaction)
		switch err {
		case nil:
			return c.SendStatus(202)
		case syncer.ErrReactionPending:
			return c.Status(409).JSON(fiber.Map{"message": "reaction request already in flight"})
		default:
			return c.Status(502).JSON(fiber.Map{"message": err.Error()})
		}
	})

	app.Get("/suggestions", func(c *fiber.Ctx) error {
		suggestions, err := config.Loader.Suggestions(c.Context())
		if err != nil {
			return c.Status(502).JSON(fiber.Map{"message": err.Error()})
		}
		return c.JSON(fiber.Map{"suggestions": suggestions})
	})

	app.Get("/posts/:id/comments", func(c *fiber.Ctx) error {
		comments, err := config.Loader.Comments(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(502).JSON(fiber.Map{"message": err.Error()})
		}
		return c.JSON(fiber.Map{"comments": comments})
	})

	// Mount/unmount endpoints driven by the consumer; events targeting
	// views not registered here are no-ops in the merge policy. Opening
	// a post mounts its comment tree; comments expand and collapse
	// within it.
	var treeMu sync.Mutex
	var openTree *comments.Tree

	currentTree := func() *comments.Tree {
		treeMu.Lock()
		defer treeMu.Unlock()
		return openTree
	}

	app.Put("/views/post/:id", func(c *fiber.Ctx) error {
		postId := c.Params("id")
		config.Views.OpenPost(postId)

		tree := comments.NewTree(postId, config.Loader, config.Views)
		if err := tree.Load(c.Context()); err != nil {
			config.Views.ClosePost()
			return c.Status(502).JSON(fiber.Map{"message": err.Error()})
		}

		treeMu.Lock()
		previous := openTree
		openTree = tree
		treeMu.Unlock()

		// Replacing the modal closes the old tree's expanded views
		if previous != nil {
			previous.Close()
		}

		return c.SendStatus(204)
	})

	app.Delete("/views/post", func(c *fiber.Ctx) error {
		config.Views.ClosePost()
		treeMu.Lock()
		previous := openTree
		openTree = nil
		treeMu.Unlock()
		if previous != nil {
			previous.Close()
		}
		return c.SendStatus(204)
	})

	app.Get("/views/post/tree", func(c *fiber.Ctx) error {
		tree := currentTree()
		if tree == nil {
			return c.Status(404).JSON(fiber.Map{"message": "no post open"})
		}
		depth := c.QueryInt("depth", 0)
		return c.JSON(fiber.Map{"comments": tree.Flatten(depth)})
	})

	app.Put("/views/comment/:id", func(c *fiber.Ctx) error {
		tree := currentTree()
		if tree == nil {
			return c.Status(404).JSON(fiber.Map{"message": "no post open"})
		}
		if err := tree.Expand(c.Context(), c.Params("id")); err != nil {
			return c.Status(502).JSON(fiber.Map{"message": err.Error()})
		}
		return c.SendStatus(204)
	})

	app.Delete("/views/comment/:id", func(c *fiber.Ctx) error {
		tree := currentTree()
		if tree == nil {
			return c.Status(404).JSON(fiber.Map{"message": "no post open"})
		}
		tree.Collapse(c.Params("id"))
		return c.SendStatus(204)
	})

	app.Delete("/feed/sse", func(c *fiber.Ctx) error {
		key := c.Query("key", "")
		bc.RemoveClient(key)
		return c.Status(200).SendString("OK")
	})

	app.Get("/feed/sse", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		// Unique client key
		key := uuid.New().String()
		events := make(chan interface{}, 10)
		aliveChan := time.NewTicker(5 * time.Second)

		defer aliveChan.Stop()

		bc.AddClient(key, events)

		cleanup := func() {
			log.Infof("Cleaning up SSE stream for client: %s", key)
			bc.RemoveClient(key)
		}

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cleanup()

			// Send initial event with client key
			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-aliveChan.C:
					// Send keep-alive pings
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-events:
					if !ok {
						log.Warnf("Event channel closed for client %s", key)
						return
					}

					name := eventName(event)
					if name == "" {
						continue
					}

					data, err := json.Marshal(event)
					if err != nil {
						log.Errorf("Error marshalling event for client %s: %v", key, err)
						continue
					}
					if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
						log.Warnf("Failed to send %s event to client %s: %v", name, key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush %s event for client %s: %v", name, key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	return app
}
