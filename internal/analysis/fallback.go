package analysis

import (
	"github.com/ternarybob/metior/internal/models"
)

// fallbackTemplate is a canned metric tied to a signal tag. Templates fire
// only when their tag was actually observed in the scan.
type fallbackTemplate struct {
	tag         string
	name        string
	description string
	category    string
	dataType    string
	source      string
}

var fallbackTemplates = []fallbackTemplate{
	{
		tag: "cache", name: "Cache Hit Ratio",
		description: "Share of reads served from cache rather than the backing store. Falling ratios usually precede latency regressions.",
		category:    models.CategoryPerformance, dataType: models.DataTypePercentage,
		source: "cache layer instrumentation (paths matching 'cache' in the repository)",
	},
	{
		tag: "latency", name: "Request Latency (P95)",
		description: "95th percentile time to serve a request. Tracks the tail experience users actually feel.",
		category:    models.CategoryPerformance, dataType: models.DataTypeNumber,
		source: "timing or profiling code found in the repository",
	},
	{
		tag: "auth", name: "Login Success Rate",
		description: "Successful sign-ins as a share of attempts. Drops indicate credential, token, or provider issues.",
		category:    models.CategoryEngagement, dataType: models.DataTypePercentage,
		source: "authentication handlers found in the repository",
	},
	{
		tag: "payments", name: "Payment Success Rate",
		description: "Completed payments as a share of initiated checkouts. Directly tied to revenue loss.",
		category:    models.CategoryBusiness, dataType: models.DataTypePercentage,
		source: "payment/billing code found in the repository",
	},
	{
		tag: "queue", name: "Queue Backlog Depth",
		description: "Jobs waiting to be processed. Sustained growth means workers are falling behind intake.",
		category:    models.CategoryPerformance, dataType: models.DataTypeNumber,
		source: "queue/worker code found in the repository",
	},
	{
		tag: "database", name: "Query Error Rate",
		description: "Failed database operations as a share of all queries. Catches migrations and schema drift early.",
		category:    models.CategoryPerformance, dataType: models.DataTypePercentage,
		source: "data access layer found in the repository",
	},
	{
		tag: "api", name: "API Error Rate",
		description: "HTTP 5xx responses as a share of all API requests. The broadest single health indicator for the service surface.",
		category:    models.CategoryPerformance, dataType: models.DataTypePercentage,
		source: "API handlers/routes found in the repository",
	},
	{
		tag: "search", name: "Search Result Click-Through Rate",
		description: "Searches that lead to a result interaction. Low values indicate relevance problems.",
		category:    models.CategoryEngagement, dataType: models.DataTypePercentage,
		source: "search/query code found in the repository",
	},
	{
		tag: "email", name: "Notification Delivery Rate",
		description: "Outbound messages accepted by the delivery provider as a share of those sent.",
		category:    models.CategoryEngagement, dataType: models.DataTypePercentage,
		source: "mail/notification code found in the repository",
	},
	{
		tag: "websocket", name: "Concurrent Active Connections",
		description: "Live realtime connections held open. Baselines capacity planning for the socket layer.",
		category:    models.CategoryEngagement, dataType: models.DataTypeNumber,
		source: "websocket/realtime code found in the repository",
	},
	{
		tag: "subscription", name: "Active Subscriptions",
		description: "Currently paying or trialing subscriptions. The primary recurring-revenue driver.",
		category:    models.CategoryBusiness, dataType: models.DataTypeNumber,
		source: "subscription/plan code found in the repository",
	},
	{
		tag: "upload", name: "Upload Failure Rate",
		description: "File uploads that fail as a share of attempts. Degrades core content flows when elevated.",
		category:    models.CategoryContent, dataType: models.DataTypePercentage,
		source: "upload/storage code found in the repository",
	},
	{
		tag: "frontend", name: "Page Load Time",
		description: "Time until the UI is interactive. The dominant frontend engagement factor.",
		category:    models.CategoryEngagement, dataType: models.DataTypeNumber,
		source: "frontend components found in the repository",
	},
	{
		tag: "testing", name: "Test Pass Rate",
		description: "Passing tests as a share of the suite on the main branch. Early warning for regressions.",
		category:    models.CategoryPerformance, dataType: models.DataTypePercentage,
		source: "test suite found in the repository",
	},
	{
		tag: "deploy", name: "Deployment Frequency",
		description: "Deployments per week. A standard delivery-throughput indicator.",
		category:    models.CategoryGrowth, dataType: models.DataTypeNumber,
		source: "CI/CD configuration found in the repository",
	},
}

// Generic cross-domain templates used to pad the signal-derived set up to
// the guaranteed floor
var genericTemplates = []fallbackTemplate{
	{
		name:        "Error Rate",
		description: "Errors logged per request or operation across the system. The baseline health metric for any service.",
		category:    models.CategoryPerformance, dataType: models.DataTypePercentage,
		source: "application logs",
	},
	{
		name:        "Active Users",
		description: "Distinct users interacting with the system per day. The baseline engagement metric.",
		category:    models.CategoryGrowth, dataType: models.DataTypeNumber,
		source: "session or access logs",
	},
	{
		name:        "Lines of Code",
		description: "Total source lines in the repository. A coarse size and growth indicator.",
		category:    models.CategoryContent, dataType: models.DataTypeNumber,
		source: "repository file tree",
	},
	{
		name:        "Commit Frequency",
		description: "Commits per week. Tracks development momentum on the repository.",
		category:    models.CategoryGrowth, dataType: models.DataTypeNumber,
		source: "version control history",
	},
	{
		name:        "Build Success Rate",
		description: "Successful builds as a share of CI runs. Signals integration health.",
		category:    models.CategoryPerformance, dataType: models.DataTypePercentage,
		source: "CI system",
	},
	{
		name:        "Open Defect Count",
		description: "Known unresolved defects. Tracks quality debt over time.",
		category:    models.CategoryContent, dataType: models.DataTypeNumber,
		source: "issue tracker",
	},
}

// GenerateFallback synthesizes the guaranteed-floor metric set from signals
// alone, without consulting LLM output. Templates whose signal was observed
// come first, padded with generic templates until the floor is met. Every
// entry is tagged fallback-sourced.
func GenerateFallback(signals []Signal, floor int) []*models.ConsolidatedMetric {
	if floor <= 0 {
		floor = 1
	}

	observed := make(map[string]bool)
	for _, tag := range SignalTags(signals) {
		observed[tag] = true
	}

	var picked []fallbackTemplate
	for _, t := range fallbackTemplates {
		if observed[t.tag] {
			picked = append(picked, t)
		}
	}
	for _, t := range genericTemplates {
		if len(picked) >= floor {
			break
		}
		picked = append(picked, t)
	}

	metrics := make([]*models.ConsolidatedMetric, 0, len(picked))
	for i, t := range picked {
		metrics = append(metrics, &models.ConsolidatedMetric{
			Name:             t.name,
			Description:      t.description,
			Category:         t.category,
			DataType:         t.dataType,
			SuggestedSources: []string{t.source},
			Mentions:         0,
			Score:            models.CategoryWeight[t.category],
			DisplayOrder:     i,
			FallbackSourced:  true,
		})
	}
	return metrics
}
