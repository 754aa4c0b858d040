package questionbank

var builtinRoles = []Role{
	{
		Name: "Backend Engineer",
		Questions: []string{
			"Walk me through the architecture of a backend service you built recently.",
			"How do you design an API so it can evolve without breaking existing clients?",
			"Describe a time you tracked down a performance problem in production.",
			"How do you decide between a relational database and a document store?",
			"What caching strategies have you used, and how did you handle invalidation?",
			"How do you make a service resilient to failures in its dependencies?",
			"Explain how you would approach concurrency control for a shared resource.",
			"How do you test code that talks to external systems?",
			"Tell me about a schema migration you had to run with zero downtime.",
			"How do you monitor a service and decide what to alert on?",
		},
		Keywords: []string{
			"api", "database", "sql", "caching", "latency",
			"scalability", "microservices", "concurrency", "queue", "index",
		},
	},
	{
		Name: "Frontend Engineer",
		Questions: []string{
			"Describe the structure of a frontend application you worked on.",
			"How do you manage state in a large single-page application?",
			"Tell me about a rendering performance issue you fixed.",
			"How do you make an interface accessible to all users?",
			"How do you approach testing user interface components?",
			"Explain how you handle data fetching, loading and error states.",
			"How do you keep styles consistent across a growing codebase?",
			"Tell me about a time you worked closely with designers to ship a feature.",
		},
		Keywords: []string{
			"react", "component", "state", "accessibility", "css",
			"performance", "rendering", "typescript", "responsive", "bundle",
		},
	},
	{
		Name: "QA Engineer",
		Questions: []string{
			"How do you decide what to test first when a new feature lands?",
			"Describe a test plan you wrote and how you structured it.",
			"What is the difference between regression testing and smoke testing in your practice?",
			"How do you decide which tests to automate and which to keep manual?",
			"Tell me about a critical bug you found late and how you handled it.",
			"How do you write a bug report that developers can act on quickly?",
			"Which test automation frameworks have you used, and what did you like about them?",
			"How do you test an API without a user interface?",
			"How do you integrate tests into a continuous integration pipeline?",
			"How do you approach performance or load testing?",
			"How do you measure whether your testing is effective?",
			"Tell me about a disagreement with a developer over a defect and how it was resolved.",
		},
		Keywords: []string{
			"regression", "automation", "test case", "selenium", "coverage",
			"bug", "ci", "edge case", "test plan", "api",
		},
	},
	{
		Name: "Data Scientist",
		Questions: []string{
			"Walk me through a model you took from exploration to production.",
			"How do you handle missing or noisy data?",
			"How do you choose an evaluation metric for a new problem?",
			"Explain how you detect and prevent overfitting.",
			"Tell me about a time your analysis changed a business decision.",
			"How do you explain a model's predictions to non-technical stakeholders?",
			"How do you design an experiment to measure the impact of a change?",
			"How do you monitor a model after deployment?",
		},
		Keywords: []string{
			"regression", "classification", "feature", "overfitting", "validation",
			"python", "pandas", "experiment", "metric", "model",
		},
	},
	{
		Name: "DevOps Engineer",
		Questions: []string{
			"Describe a deployment pipeline you built or maintained.",
			"How do you manage infrastructure as code across environments?",
			"Tell me about an outage you responded to and what you changed afterwards.",
			"How do you design monitoring and alerting for a new service?",
			"How do you handle secrets in your infrastructure?",
			"Explain how you would roll back a failed release.",
			"How do you approach capacity planning?",
			"How do you keep container images small and secure?",
		},
		Keywords: []string{
			"kubernetes", "docker", "terraform", "pipeline", "monitoring",
			"rollback", "incident", "infrastructure", "ci", "observability",
		},
	},
	{
		Name: "Product Manager",
		Questions: []string{
			"Tell me about a product you launched and how you measured its success.",
			"How do you prioritize a roadmap when stakeholders disagree?",
			"Describe how you gather and validate customer requirements.",
			"Tell me about a feature you decided not to build, and why.",
			"How do you work with engineering to balance scope and deadlines?",
			"How do you define and track product metrics?",
			"Describe a time you had to change direction based on data.",
			"How do you communicate a product vision to a new team?",
		},
		Keywords: []string{
			"roadmap", "stakeholder", "customer", "metric", "prioritization",
			"user research", "mvp", "launch", "okr", "feedback",
		},
	},
}
