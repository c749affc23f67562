package main

import (
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meikuraledutech/paramgraph"
)

type server struct {
	store    paramgraph.Store
	compiler *paramgraph.Compiler
	logger   hclog.Logger
}

func newApp(store paramgraph.Store, compiler *paramgraph.Compiler, logger hclog.Logger) *fiber.App {
	s := &server{store: store, compiler: compiler, logger: logger}

	app := fiber.New(fiber.Config{
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})
	app.Use(s.logRequests)

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Graphs ────────────────────────────────────────────────────────
	app.Post("/graphs", func(c fiber.Ctx) error {
		g, err := paramgraph.UnmarshalGraph(c.Body())
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		if err := store.SaveGraph(c.Context(), g); err != nil {
			return s.fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": g.ID, "change_id": g.ChangeID})
	})

	app.Get("/graphs", func(c fiber.Ctx) error {
		graphs, err := store.ListGraphs(c.Context())
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(graphs)
	})

	app.Get("/graphs/:id", func(c fiber.Ctx) error {
		g, err := store.GetGraph(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		if g == nil {
			return c.Status(404).JSON(fiber.Map{"error": "graph not found"})
		}
		b, err := paramgraph.MarshalGraph(g)
		if err != nil {
			return s.fail(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(b)
	})

	app.Delete("/graphs/:id", func(c fiber.Ctx) error {
		if err := store.DeleteGraph(c.Context(), c.Params("id")); err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Post("/graphs/:id/refresh", func(c fiber.Ctx) error {
		src, err := paramgraph.NewLoader(store, logger).Source(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		changed := src.Graph.RefreshCallNodes()
		if changed > 0 {
			if err := store.SaveGraph(c.Context(), src.Graph); err != nil {
				return s.fail(c, err)
			}
		}
		return c.JSON(fiber.Map{"refreshed": changed, "change_id": src.Graph.ChangeID})
	})

	// ── Analysis ──────────────────────────────────────────────────────
	app.Get("/graphs/:id/outputs", s.withGraph(func(c fiber.Ctx, g *paramgraph.Graph) error {
		type output struct {
			Node       paramgraph.NodeID     `json:"node"`
			Usage      string                `json:"usage"`
			UsageIndex int                   `json:"usage_index"`
			Outputs    []paramgraph.Variable `json:"outputs"`
		}
		out := []output{}
		for _, n := range g.FindOutputNodes() {
			d := n.Data.(*paramgraph.OutputData)
			out = append(out, output{Node: n.ID, Usage: d.Usage.String(), UsageIndex: d.UsageIndex, Outputs: d.Outputs})
		}
		return c.JSON(out)
	}))

	app.Get("/graphs/:id/inputs", s.withGraph(func(c fiber.Ctx, g *paramgraph.Graph) error {
		opts := paramgraph.DefaultFindInputNodesOptions()
		opts.Sort = fiber.Query[bool](c, "sort")
		opts.FilterDuplicates = fiber.Query[bool](c, "filter_duplicates")
		if u := c.Query("usage"); u != "" {
			usage, err := paramgraph.ParseScriptUsage(u)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": err.Error()})
			}
			opts.FilterByUsage = &paramgraph.UsageOccurrence{Usage: usage, Occurrence: fiber.Query[int](c, "occurrence")}
		}
		vars := []paramgraph.Variable{}
		for _, n := range g.FindInputNodes(opts) {
			vars = append(vars, n.Data.(*paramgraph.InputData).Variable)
		}
		return c.JSON(vars)
	}))

	app.Get("/graphs/:id/parameters", s.withGraph(func(c fiber.Ctx, g *paramgraph.Graph) error {
		inputs, outputs := g.GetParameters()
		return c.JSON(fiber.Map{"inputs": inputs, "outputs": outputs})
	}))

	app.Get("/graphs/:id/variables", s.withGraph(func(c fiber.Ctx, g *paramgraph.Graph) error {
		var usages []paramgraph.ScriptUsage
		if u := c.Query("usage"); u != "" {
			usage, err := paramgraph.ParseScriptUsage(u)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": err.Error()})
			}
			usages = append(usages, usage)
		}
		return c.JSON(paramgraph.GetOutputNodeVariables(g, usages...))
	}))

	app.Get("/graphs/:id/histories", s.withGraph(func(c fiber.Ctx, g *paramgraph.Graph) error {
		output := paramgraph.NodeID(fiber.Query[int](c, "output"))
		histories := paramgraph.NewHistoryBuilder(
			paramgraph.WithNamespaceOverride(c.Query("namespace")),
			paramgraph.WithBuilderLogger(logger),
		).BuildParameterMaps(g, output, fiber.Query[bool](c, "limit"))
		return c.JSON(histories)
	}))

	app.Get("/graphs/:id/traversal/:output", s.withGraph(func(c fiber.Ctx, g *paramgraph.Graph) error {
		output := paramgraph.NodeID(fiber.Params[int](c, "output"))
		if n := g.Node(output); n == nil || n.Kind() != paramgraph.KindOutput {
			return c.Status(404).JSON(fiber.Map{"error": "output node not found"})
		}
		return c.JSON(paramgraph.BuildTraversal(g, output))
	}))

	// ── Scripts ───────────────────────────────────────────────────────
	app.Post("/scripts", func(c fiber.Ctx) error {
		var rec paramgraph.ScriptRecord
		if err := c.Bind().JSON(&rec); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if rec.ID == "" || rec.GraphID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "id and graph_id are required"})
		}
		if err := store.SaveScript(c.Context(), &rec); err != nil {
			return s.fail(c, err)
		}
		return c.Status(201).JSON(rec)
	})

	app.Get("/scripts/:id", func(c fiber.Ctx) error {
		rec, err := store.GetScript(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		if rec == nil {
			return c.Status(404).JSON(fiber.Map{"error": "script not found"})
		}
		return c.JSON(rec)
	})

	app.Get("/scripts/:id/sync", func(c fiber.Ctx) error {
		script, err := paramgraph.NewLoader(store, logger).Script(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{
			"synchronized":    script.IsSynchronized(),
			"change_id":       script.ChangeID,
			"graph_change_id": script.Graph().ChangeID,
			"unique_id":       script.UniqueID,
		})
	})

	app.Post("/scripts/:id/compile", func(c fiber.Ctx) error {
		script, err := paramgraph.NewLoader(store, logger).Script(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		if fiber.Query[bool](c, "if_needed") && script.IsSynchronized() {
			return c.Status(304).Send(nil)
		}
		src := script.Source
		if err := src.BeginPrecompile(); err != nil {
			return s.fail(c, err)
		}
		result := compiler.Compile(script)
		src.EndPostcompile()

		rec := script.Record()
		if err := store.SaveScript(c.Context(), &rec); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(result)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

// withGraph loads the graph named by the :id parameter, resolving its calls.
func (s *server) withGraph(fn func(c fiber.Ctx, g *paramgraph.Graph) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		src, err := paramgraph.NewLoader(s.store, s.logger).Source(c.Context(), c.Params("id"))
		if err != nil {
			return s.fail(c, err)
		}
		return fn(c, src.Graph)
	}
}

// fail maps an error to a status code and JSON body.
func (s *server) fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, paramgraph.ErrGraphNotFound), errors.Is(err, paramgraph.ErrScriptNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, paramgraph.ErrCorruptGraph):
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}

func (s *server) logRequests(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}
