package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/paramgraph"
	"github.com/meikuraledutech/paramgraph/memstore"
	"github.com/meikuraledutech/paramgraph/postgres"
)

func main() {
	ctx := context.Background()
	logger := hclog.New(&hclog.LoggerOptions{Name: "example", Level: hclog.Info})

	// Wire up a Store: postgres when DATABASE_URL is set, memory otherwise.
	var store paramgraph.Store = memstore.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── A module that pushes particles outwards ───────────────────────
	module := paramgraph.NewScript("AddVelocity", paramgraph.UsageModule, paramgraph.NewSource())
	mg := module.Graph()
	mapIn := mg.AddInput(paramgraph.NewVariable(paramgraph.TypeParameterMap, "Map"), paramgraph.InputParameter)
	speed := mg.AddInput(paramgraph.NewVariable(paramgraph.TypeVec3, "Velocity"), paramgraph.InputParameter)
	must(mg.SetInputFlags(speed.ID, true, true))
	set := mg.AddParameterMapSet(paramgraph.NewVariable(paramgraph.TypeVec3, "Particles.Velocity"))
	out := mg.AddOutput(paramgraph.UsageModule, 0, paramgraph.NewVariable(paramgraph.TypeParameterMap, "Map"))
	must(mg.Link(mg.NodePins(mapIn)[0].ID, mg.MapInputPin(set).ID))
	must(mg.Link(mg.NodePins(speed)[0].ID, pinNamed(mg, set, "Particles.Velocity")))
	must(mg.Link(mg.MapOutputPin(set).ID, mg.MapInputPin(out).ID))

	// ── A spawn script calling it ─────────────────────────────────────
	spawn := paramgraph.NewScript("Fountain.Spawn", paramgraph.UsageParticleSpawn, paramgraph.NewSource())
	sg := spawn.Graph()
	sMap := sg.AddInput(paramgraph.NewVariable(paramgraph.TypeParameterMap, "Map"), paramgraph.InputParameter)
	call, err := sg.AddFunctionCall(module)
	if err != nil {
		log.Fatalf("add call: %v", err)
	}
	assign, err := sg.AddAssignment(paramgraph.NewVariable(paramgraph.TypeFloat, "Particles.Lifetime"), []byte{0, 0, 0x80, 0x3f})
	if err != nil {
		log.Fatalf("add assignment: %v", err)
	}
	sOut := sg.AddOutput(paramgraph.UsageParticleSpawn, 0,
		paramgraph.NewVariable(paramgraph.TypeParameterMap, "Map"),
		paramgraph.NewVariable(paramgraph.TypeVec3, "Particles.Position"),
	)
	must(sg.Link(sg.NodePins(sMap)[0].ID, sg.MapInputPin(call).ID))
	must(sg.Link(sg.MapOutputPin(call).ID, sg.MapInputPin(assign).ID))
	must(sg.Link(sg.MapOutputPin(assign).ID, sg.MapInputPin(sOut).ID))

	// ── Persist ───────────────────────────────────────────────────────
	for _, s := range []*paramgraph.Script{module, spawn} {
		must(store.SaveGraph(ctx, s.Graph()))
		rec := s.Record()
		must(store.SaveScript(ctx, &rec))
	}
	fmt.Println("graphs saved")

	// ── Reload and analyse ────────────────────────────────────────────
	loaded, err := paramgraph.NewLoader(store, logger).Script(ctx, spawn.ID)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	fmt.Println("\nhistories:")
	printJSON(paramgraph.BuildParameterMaps(loaded.Graph(), paramgraph.NoNode, false, ""))

	fmt.Println("\nspawn variables:")
	printJSON(paramgraph.GetOutputNodeVariables(loaded.Graph(), paramgraph.UsageParticleSpawn))

	// ── Compile ───────────────────────────────────────────────────────
	compiler := paramgraph.NewCompiler(paramgraph.WithLogger(logger))
	must(loaded.Source.BeginPrecompile())
	result := compiler.Compile(loaded)
	loaded.Source.EndPostcompile()

	fmt.Printf("\ncompiled: failed=%v chunks=%d synchronized=%v\n", result.Failed, len(result.Chunks), loaded.IsSynchronized())
	for _, d := range result.Diagnostics {
		fmt.Println("  " + d.Error())
	}

	// ── Cleanup ───────────────────────────────────────────────────────
	for _, s := range []*paramgraph.Script{module, spawn} {
		must(store.DeleteGraph(ctx, s.Graph().ID))
	}
	fmt.Println("\ngraphs deleted")
}

func pinNamed(g *paramgraph.Graph, n *paramgraph.Node, name string) paramgraph.PinID {
	for _, p := range g.NodePins(n) {
		if p.Name == name {
			return p.ID
		}
	}
	return paramgraph.NoPin
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func printJSON(v any) {
	out, _ := sonic.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
