package postgresql

// migrations returns the schema migrations, keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'pending',
				payload JSONB,
				nodes JSONB NOT NULL DEFAULT '[]',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_status ON workflows (status);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS requests (
				id UUID PRIMARY KEY,
				request_type VARCHAR(255) NOT NULL,
				external_key VARCHAR(512) NOT NULL UNIQUE,
				payload JSONB,
				source VARCHAR(255),
				source_reference VARCHAR(512),
				status VARCHAR(50) NOT NULL DEFAULT 'pending',
				retry_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				last_error TEXT,
				resolution_payload JSONB,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_requests_due
				ON requests (created_at)
				WHERE status IN ('pending', 'failed');

			CREATE INDEX IF NOT EXISTS idx_requests_resolved_updated
				ON requests (updated_at)
				WHERE status = 'resolved';
		`,
	}
}
