package rpc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/savecontext/savecontext/internal/gitstatus"
	"github.com/savecontext/savecontext/internal/store"
	"github.com/savecontext/savecontext/internal/syncqueue"
)

// completedMarkers are substrings that mark a reminder's value as already
// handled, per spec.md §4.7's context_prepare_compaction contract.
var completedMarkers = []string{"completed", "done", "[completed]"}

func registerCompactionTools(reg *Registry, s *store.Store, pool embedDropper) {
	reg.Register(ToolDefinition{
		Name: "context_prepare_compaction",
		Description: "Checkpoint the session and build a compact summary of high-priority items, " +
			"recent decisions, unfinished reminders, and recent progress, ready for the agent to " +
			"hand off before its context window fills.",
		Parameters: map[string]ParameterDef{
			"session_id": {Type: "string", Description: "session id, defaults to the agent's current session"},
			"cwd":        {Type: "string", Description: "working directory to capture git status from"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sessionID, err := resolveSessionID(s, agentID, params)
			if err != nil {
				return errEnvelope(err)
			}

			var gitBranch, gitStatusJSON string
			if cwd := getString(params, "cwd"); cwd != "" {
				if gs, err := gitstatus.Get(cwd); err == nil {
					gitBranch = gs.Branch
					if b, err := json.Marshal(gs); err == nil {
						gitStatusJSON = string(b)
					}
				}
			}

			cpName := fmt.Sprintf("pre-compact-%d", store.NowMS())
			cp, err := s.CreateCheckpoint(sessionID, cpName, "auto-captured before compaction",
				gitBranch, gitStatusJSON, store.CheckpointFilter{})
			if err != nil {
				return errEnvelope(err)
			}

			items, err := s.ListContextItems(sessionID, store.ContextItemListFilter{Limit: 10000})
			if err != nil {
				return errEnvelope(err)
			}

			summary := buildCompactionSummary(items)
			summaryItem, err := s.SaveContextItem(sessionID, "compaction_summary_"+cp.ID, summary,
				store.CategoryNote, store.PriorityHigh, "", []string{"compaction"})
			if err != nil {
				return errEnvelope(err)
			}
			if pool != nil {
				pool.Submit(summaryItem.ID, summaryItem.Value)
			}

			return ok(map[string]interface{}{
				"checkpoint": cp,
				"summary":    summary,
				"summary_key": summaryItem.Key,
			})
		},
	})
}

type embedDropper interface {
	Submit(itemID, text string)
}

// buildCompactionSummary implements the composite tool's collection step:
// high-priority items, recent decisions, unfinished reminders (those whose
// value doesn't already say they're done), and recent progress.
func buildCompactionSummary(items []*store.ContextItem) string {
	var highPriority, decisions, reminders, progress []*store.ContextItem

	for _, item := range items {
		if item.Priority == store.PriorityHigh {
			highPriority = append(highPriority, item)
		}
		switch item.Category {
		case store.CategoryDecision:
			decisions = append(decisions, item)
		case store.CategoryReminder:
			if !isMarkedCompleted(item.Value) {
				reminders = append(reminders, item)
			}
		case store.CategoryProgress:
			progress = append(progress, item)
		}
	}

	decisions = lastN(decisions, 10)
	progress = lastN(progress, 10)

	var b strings.Builder
	b.WriteString("# Session Summary\n\n")
	writeSection(&b, "High Priority", highPriority)
	writeSection(&b, "Recent Decisions", decisions)
	writeSection(&b, "Unfinished Reminders", reminders)
	writeSection(&b, "Recent Progress", progress)
	return b.String()
}

func isMarkedCompleted(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range completedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func lastN(items []*store.ContextItem, n int) []*store.ContextItem {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func writeSection(b *strings.Builder, title string, items []*store.ContextItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- **%s**: %s\n", item.Key, item.Value)
	}
	b.WriteString("\n")
}

// registerOpsTools wires get_stats and sync_status, the two read-only
// observability tools spec.md §7 calls out as how sync/embedding state is
// surfaced to agents instead of propagated as RPC errors.
func registerOpsTools(reg *Registry, s *store.Store, queue *syncqueue.Queue, pool interface{ DroppedCount() uint64 }) {
	reg.Register(ToolDefinition{
		Name:        "get_stats",
		Description: "Summarize session/issue/plan counts for a project.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "project path", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			sessions, err := s.ListSessions(store.SessionListFilter{ProjectPath: projectPath, Limit: 100000})
			if err != nil {
				return errEnvelope(err)
			}
			issues, err := s.ListIssues(store.IssueListFilter{ProjectPath: projectPath})
			if err != nil {
				return errEnvelope(err)
			}
			plans, err := s.ListPlans(projectPath, "")
			if err != nil {
				return errEnvelope(err)
			}

			sessionsByStatus := map[store.SessionStatus]int{}
			for _, sess := range sessions {
				sessionsByStatus[sess.Status]++
			}
			issuesByStatus := map[store.IssueStatus]int{}
			for _, iss := range issues {
				issuesByStatus[iss.Status]++
			}

			data := map[string]interface{}{
				"sessions_total":      len(sessions),
				"sessions_by_status":  sessionsByStatus,
				"issues_total":        len(issues),
				"issues_by_status":    issuesByStatus,
				"plans_total":         len(plans),
			}
			if pool != nil {
				data["embeddings_dropped"] = pool.DroppedCount()
			}
			return ok(data)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "sync_status",
		Description: "Report the outbound sync queue's depth, or trigger an immediate sync pass.",
		Parameters: map[string]ParameterDef{
			"sync_now": {Type: "boolean", Description: "trigger an immediate processing pass before reporting"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			if queue == nil {
				return ok(map[string]interface{}{"configured": false})
			}
			if getBool(params, "sync_now") {
				queue.SyncNow()
			}
			snapshot := queue.Snapshot()
			return ok(map[string]interface{}{
				"configured": true,
				"queued":     len(snapshot),
				"items":      snapshot,
			})
		},
	})
}
