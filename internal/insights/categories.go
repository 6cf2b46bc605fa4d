package insights

// Category groups related job keywords.
type Category string

const (
	Cloud      Category = "cloud"
	Data       Category = "data"
	Backend    Category = "backend"
	Frontend   Category = "frontend"
	DevOps     Category = "devops"
	Security   Category = "security"
	Leadership Category = "leadership"
	General    Category = "general"
)

// Priority is the order categories are checked in, both for classification
// and when choosing which category to report.
var Priority = []Category{Cloud, Data, Backend, Frontend, DevOps, Security, Leadership}

var members = map[Category]map[string]struct{}{
	Cloud:      set("aws", "azure", "gcp", "cloud", "ec2", "s3", "lambda", "kubernetes", "k8s"),
	Data:       set("sql", "postgres", "postgresql", "mysql", "mongodb", "redis", "kafka", "spark", "hadoop", "etl", "analytics", "data", "warehouse", "snowflake", "bigquery", "pandas"),
	Backend:    set("java", "python", "golang", "node", "nodejs", "api", "apis", "rest", "graphql", "microservices", "django", "flask", "spring", "backend", "c++", "c#", "ruby", "rails", "php"),
	Frontend:   set("react", "angular", "vue", "javascript", "typescript", "html", "css", "frontend", "redux", "nextjs", "ui", "ux"),
	DevOps:     set("docker", "terraform", "jenkins", "ansible", "ci", "cd", "cicd", "devops", "helm", "linux", "git", "github", "gitlab", "monitoring", "prometheus", "grafana"),
	Security:   set("security", "iam", "oauth", "sso", "encryption", "compliance", "soc2", "gdpr", "vulnerability", "penetration", "siem"),
	Leadership: set("leadership", "lead", "mentor", "mentored", "mentoring", "manage", "managed", "management", "stakeholder", "stakeholders", "strategy", "ownership", "team"),
}

var labels = map[Category]string{
	Cloud:      "cloud platforms",
	Data:       "data and analytics",
	Backend:    "backend engineering",
	Frontend:   "frontend development",
	DevOps:     "DevOps and delivery",
	Security:   "security and compliance",
	Leadership: "leadership and collaboration",
	General:    "general requirements",
}

var gapAdvice = map[Category]string{
	Cloud:      "Call out hands-on work with the cloud services named in the posting.",
	Data:       "Show the databases and pipelines you have built or operated.",
	Backend:    "Name the languages and services you shipped, with their scale.",
	Frontend:   "Point to user-facing features and the frameworks behind them.",
	DevOps:     "Describe the build, deploy and monitoring tooling you own.",
	Security:   "Mention security reviews, access control or audits you took part in.",
	Leadership: "Give examples of leading people, projects or stakeholders.",
}

func set(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

// Categorize returns the first category whose set contains keyword.
func Categorize(keyword string) Category {
	for _, c := range Priority {
		if _, ok := members[c][keyword]; ok {
			return c
		}
	}
	return General
}
