package core

// ReasonCode is the machine-readable code attached to every pause and
// terminal status change so operators can see why a project stopped.
type ReasonCode string

const (
	// ReasonNoAPIToken signals a run attempted without a usable credential.
	ReasonNoAPIToken ReasonCode = "NO_API_TOKEN"
	// ReasonDecryptionFailure signals the stored credential could not be decrypted.
	ReasonDecryptionFailure ReasonCode = "DECRYPTION_FAILURE"
	// ReasonTokenInactive signals the project's token was revoked or missing.
	ReasonTokenInactive ReasonCode = "TOKEN_INACTIVE_OR_MISSING"
	// ReasonAgentNotFound signals a message addressed an agent absent from context.
	ReasonAgentNotFound ReasonCode = "AGENT_NOT_FOUND"
	// ReasonValidationFailure signals a message exhausted all reply-format retries.
	ReasonValidationFailure ReasonCode = "VALIDATION_FAILURE"
	// ReasonInvalidAgentName signals a syntactically valid reply naming an unknown agent.
	ReasonInvalidAgentName ReasonCode = "INVALID_AGENT_NAME"
	// ReasonMissingConversation signals no conversation exists for the replied pair.
	ReasonMissingConversation ReasonCode = "MISSING_CONVERSATION"
	// ReasonHandlerCrash is the catch-all for unclassified processing failures.
	ReasonHandlerCrash ReasonCode = "HANDLER_CRASH"

	// ReasonInvalidAPIKey signals the model backend rejected the credential.
	ReasonInvalidAPIKey ReasonCode = "INVALID_API_KEY"
	// ReasonTokenExhausted signals a model backend rate limit or exhausted quota.
	ReasonTokenExhausted ReasonCode = "TOKEN_EXHAUSTED"
	// ReasonModelBadRequest signals the model backend rejected the request shape.
	ReasonModelBadRequest ReasonCode = "MODEL_BAD_REQUEST"
	// ReasonModelError is the generic model transport failure.
	ReasonModelError ReasonCode = "MODEL_ERROR"

	// ReasonStuckQueue signals the oldest pending message exceeded the stale timeout.
	ReasonStuckQueue ReasonCode = "STUCK_QUEUE_TIMEOUT"
	// ReasonIdleTimeout signals the project exceeded the inactivity timeout.
	ReasonIdleTimeout ReasonCode = "IDLE_TIMEOUT"
)
