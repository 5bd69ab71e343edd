package postgres

const queryInsertExecution = `
INSERT INTO executions (id, trigger_name, job_name, execution_key, scheduled_at, fired_at, status, requests_recovery, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

const queryGetExecutionStatus = `
SELECT status FROM executions WHERE id = $1
`

const queryUpdateExecutionStatus = `
UPDATE executions
SET status = $1
WHERE id = $2
  AND status NOT IN ('completed', 'failed')
`

const queryGetInterruptedExecutions = `
SELECT id, trigger_name, job_name, execution_key, scheduled_at, fired_at, status, requests_recovery, created_at
FROM executions
WHERE status = 'running'
  AND created_at < $1
ORDER BY created_at ASC
LIMIT $2
`

const queryListExecutions = `
SELECT id, trigger_name, job_name, execution_key, scheduled_at, fired_at, status, requests_recovery, created_at
FROM executions
WHERE job_name = $1
ORDER BY scheduled_at DESC
LIMIT $2 OFFSET $3
`
