package constants

type ContextKey string

const (
	LoggerKey       ContextKey = "logger"
	ParamsKey       ContextKey = "params"
	PoolKey         ContextKey = "pool"
	TxKey           ContextKey = "tx"
	TenantIDKey     ContextKey = "tenantID"
	TenantScopeKey  ContextKey = "tenantScope"
	UserKey         ContextKey = "user"
	RequestStart    ContextKey = "requestStart"
)
