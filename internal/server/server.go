// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete services and
// injects them into the tools/prompts/resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nbmcp/nbmcp/internal/analysis"
	"github.com/nbmcp/nbmcp/internal/config"
	"github.com/nbmcp/nbmcp/internal/execution"
	"github.com/nbmcp/nbmcp/internal/history"
	"github.com/nbmcp/nbmcp/internal/jupyter"
	"github.com/nbmcp/nbmcp/internal/log"
	"github.com/nbmcp/nbmcp/internal/prompts"
	"github.com/nbmcp/nbmcp/internal/resources"
	"github.com/nbmcp/nbmcp/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function shuts down the kernel workers and closes
// the history store, and must be called on shutdown (typically via
// defer). It is always non-nil and safe to call even if history init
// failed.
func New() (*server.MCPServer, func(), error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, noop, fmt.Errorf("loading configuration: %w", err)
	}
	log.SetLevel(cfg.LogLevel)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"nbmcp",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register notebook analysis tools ---
	//
	// These read .ipynb files from disk and never touch the Jupyter
	// server, so they work with zero configuration.

	svc := analysis.NewService()

	analyzeTool := tools.NewAnalyzeTool(svc)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	contextTool := tools.NewContextTool(svc)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	exportTool := tools.NewExportScriptTool(svc)
	s.AddTool(exportTool.Definition(), exportTool.Handle)

	stateTool := tools.NewStateTool(svc)
	s.AddTool(stateTool.Definition(), stateTool.Handle)

	rerunTool := tools.NewRerunPlanTool(svc)
	s.AddTool(rerunTool.Definition(), rerunTool.Handle)

	// --- Register Jupyter tools ---
	//
	// All of these need JUPYTER_BASE_URL. They are registered either
	// way so hosts can discover them, but without configuration each
	// call refuses with a configuration error instead of dialing
	// nowhere.

	client := jupyter.NewClient(cfg.JupyterBaseURL, cfg.JupyterToken)
	manager := execution.NewManager(cfg.JupyterBaseURL, cfg.JupyterToken)
	guard := jupyterGuard(cfg.JupyterBaseURL)

	sessionsTool := tools.NewListSessionsTool(client)
	s.AddTool(sessionsTool.Definition(), guard(sessionsTool.Handle))

	kernelInfoTool := tools.NewKernelInfoTool(client)
	s.AddTool(kernelInfoTool.Definition(), guard(kernelInfoTool.Handle))

	executeTool := tools.NewExecuteTool(manager)
	s.AddTool(executeTool.Definition(), guard(executeTool.Handle))

	submitTool := tools.NewSubmitTool(manager)
	s.AddTool(submitTool.Definition(), guard(submitTool.Handle))

	statusTool := tools.NewStatusTool(manager)
	s.AddTool(statusTool.Definition(), guard(statusTool.Handle))

	outputTool := tools.NewOutputTool(manager)
	s.AddTool(outputTool.Definition(), guard(outputTool.Handle))

	cancelTool := tools.NewCancelTool(manager)
	s.AddTool(cancelTool.Definition(), guard(cancelTool.Handle))

	waitTool := tools.NewWaitTool(manager)
	s.AddTool(waitTool.Definition(), guard(waitTool.Handle))

	dropTool := tools.NewDropKernelTool(manager)
	s.AddTool(dropTool.Definition(), guard(dropTool.Handle))

	inspectTool := tools.NewInspectTool(cfg.JupyterBaseURL, cfg.JupyterToken)
	s.AddTool(inspectTool.Definition(), guard(inspectTool.Handle))

	// --- Register execution history ---
	//
	// History is an independent subsystem: if the store fails to open,
	// execution tools continue working. We log a warning and skip both
	// recording and the history tool registration.

	closeHistory := noop
	histCfg := history.DefaultConfig()
	if cfg.HistoryPath != "" {
		histCfg.DataDir = cfg.HistoryPath
	}
	store, histErr := history.New(histCfg)
	if histErr != nil {
		log.Warnf("execution history disabled: %v", histErr)
	} else {
		manager.SetRecorder(store)
		closeHistory = func() {
			if err := store.Close(); err != nil {
				log.Warnf("history store close: %v", err)
			}
		}

		historyTool := tools.NewHistoryTool(store)
		s.AddTool(historyTool.Definition(), historyTool.Handle)
	}

	cleanup := func() {
		manager.Shutdown()
		closeHistory()
	}

	// --- Register prompts ---

	triagePrompt := prompts.NewTriagePrompt()
	s.AddPrompt(triagePrompt.Definition(), triagePrompt.Handle)

	healthPrompt := prompts.NewHealthPrompt()
	s.AddPrompt(healthPrompt.Definition(), healthPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(svc)
	s.AddResourceTemplate(resourceHandler.AnalysisTemplate(), resourceHandler.HandleAnalysis)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when history
// is disabled or hasn't been initialized.
func noop() {}

// jupyterGuard wraps Jupyter-facing handlers so that a missing
// JUPYTER_BASE_URL surfaces as a tool error at call time. Analysis tools
// stay usable on an unconfigured server; execution tools refuse until
// the environment is set.
func jupyterGuard(baseURL string) func(server.ToolHandlerFunc) server.ToolHandlerFunc {
	if baseURL != "" {
		return func(h server.ToolHandlerFunc) server.ToolHandlerFunc { return h }
	}
	return func(server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("JUPYTER_BASE_URL is not set"), nil
		}
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use nbmcp effectively.
func serverInstructions() string {
	return `You have access to nbmcp, a Jupyter notebook analysis and execution MCP server.

## TOOL FAMILIES

nbmcp exposes two independent tool families:

- notebook_* tools read .ipynb files from disk and analyze them statically.
  They never talk to a Jupyter server and need no configuration.
- jupyter_* tools talk to a live Jupyter Server over REST and websocket.
  They require JUPYTER_BASE_URL (and JUPYTER_TOKEN when the server
  enforces authentication).

## NOTEBOOK ANALYSIS

The analysis tools build a dependency graph of the notebook: which cells
define which names, which cells use them, and the edges that result.

- notebook_analyze: the full graph — cells, defined/used names, edges.
- notebook_state: classifies every code cell as fresh, stale, errored, or
  never-run by comparing execution counts along the dependency edges. A
  cell is stale when something it depends on ran more recently.
- notebook_rerun_plan: the minimal ordered list of cells to re-execute so
  a focus cell becomes trustworthy. Fresh upstream cells are skipped.
- notebook_context: a budgeted slice of the notebook around one cell —
  upstream dependencies first, the focus cell last. Use it to reason
  about a cell without loading the whole notebook.
- notebook_export_script: the notebook as a linear Python script in
  dependency order.

When the user asks "why is this result wrong or old": notebook_state
first. When the user wants to change a cell: notebook_context on it.

## CODE EXECUTION

Executions are asynchronous tasks: pending -> running -> completed or
failed. Failed tasks carry an error label:

- cancelled: cancelled before the code reached the kernel
- timeout: no terminal reply within the task's timeout
- error: the code raised an exception in the kernel
- websocket_execution_failed: the connection broke mid-execution
- kernel_worker_disconnected: the connection could not be established, or
  died while the task was still queued

Tools:

- jupyter_list_sessions / jupyter_kernel_info: find kernels. A notebook's
  kernel_id comes from its session entry.
- jupyter_execute: submit and wait in one call; returns the combined
  result (status, stdout, stderr, result, error). Use for short code.
- jupyter_execution_submit + jupyter_execution_wait: split flow for long
  code. Submit returns an execution_id immediately; wait blocks up to its
  own timeout and returns the full task snapshot either way.
- jupyter_execution_status / jupyter_execution_output: poll without
  blocking.
- jupyter_execution_cancel: cancels a QUEUED execution. Code already
  running in the kernel is not interrupted — cancel only keeps unsent
  code from reaching the kernel.
- jupyter_drop_kernel: drops our connection to a kernel. Queued
  executions fail with kernel_worker_disconnected; the kernel itself
  keeps running and its variables survive.
- jupyter_inspect: peek at an expression's type and repr over a dedicated
  connection, without executing a code body. Works even while the
  kernel's queue is busy.
- jupyter_execution_history: recent executions from the local history
  database, optionally filtered by kernel_id.

## EXECUTION RULES

- One kernel runs ONE submission at a time, in submission order. Parallel
  submissions to the same kernel queue up; use different kernels for real
  parallelism.
- A timeout fails the waiting task but never corrupts the kernel
  connection — later submissions on the same kernel still work.
- Variables persist in the kernel between executions. Prefer several
  small executions over one giant cell: you get outputs earlier and lose
  less on failure.
- A typical fix-and-verify loop: notebook_state, then notebook_rerun_plan
  on the broken cell, then jupyter_execute each planned cell in order
  (stop at the first failure), then notebook_state again.`
}
