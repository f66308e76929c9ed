package tools

import "github.com/plugkit/plugkit/llm"

// AllTools returns all built-in tools. The send_email tool is configured
// from the environment; pass an explicit SMTPConfig via MessagingTools to
// override.
func AllTools() []llm.Tool {
	return []llm.Tool{
		MustWebFetch(),
		MustGitHub(),
		MustSQLiteQuery(),
		MustJQ(),
		MustSendEmail(SMTPConfigFromEnv()),
	}
}

// WebTools returns tools that talk to remote HTTP services.
func WebTools() []llm.Tool {
	return []llm.Tool{
		MustWebFetch(),
		MustGitHub(),
	}
}

// DataTools returns tools that query or transform local data.
func DataTools() []llm.Tool {
	return []llm.Tool{
		MustSQLiteQuery(),
		MustJQ(),
	}
}

// MessagingTools returns tools that deliver messages to people.
func MessagingTools(cfg SMTPConfig) []llm.Tool {
	return []llm.Tool{
		MustSendEmail(cfg),
	}
}
