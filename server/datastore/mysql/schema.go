package mysql

// schema is applied by MigrateTables. Statements are idempotent so the
// serve command can run it unconditionally at startup.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id                   VARCHAR(36)  NOT NULL,
    customer_id          VARCHAR(36)  NOT NULL,
    worker_id            VARCHAR(36)  NOT NULL DEFAULT '',
    skill                VARCHAR(64)  NOT NULL,
    description          TEXT         NOT NULL,
    address              VARCHAR(255) NOT NULL DEFAULT '',
    status               VARCHAR(16)  NOT NULL,
    is_broadcast         TINYINT(1)   NOT NULL DEFAULT 0,
    price                INT          NOT NULL,
    platform_fee         INT          NULL,
    worker_earnings      INT          NULL,
    arrival_code         VARCHAR(8)   NOT NULL,
    completion_code      VARCHAR(8)   NOT NULL,
    completion_requested TINYINT(1)   NOT NULL DEFAULT 0,
    completion_media     JSON         NULL,
    is_paid              TINYINT(1)   NOT NULL DEFAULT 0,
    payment_method       VARCHAR(8)   NOT NULL DEFAULT '',
    cancelled_by         VARCHAR(16)  NOT NULL DEFAULT '',
    review               JSON         NULL,
    customer_name        VARCHAR(128) NOT NULL DEFAULT '',
    customer_phone       VARCHAR(32)  NOT NULL DEFAULT '',
    customer_avatar      VARCHAR(255) NOT NULL DEFAULT '',
    worker_name          VARCHAR(128) NOT NULL DEFAULT '',
    worker_phone         VARCHAR(32)  NOT NULL DEFAULT '',
    worker_avatar        VARCHAR(255) NOT NULL DEFAULT '',
    created_at           TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at           TIMESTAMP    NULL     ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    KEY idx_jobs_broadcast_feed (status, is_broadcast, skill),
    KEY idx_jobs_customer (customer_id),
    KEY idx_jobs_worker (worker_id)
);

CREATE TABLE IF NOT EXISTS workers (
    id             VARCHAR(36)  NOT NULL,
    name           VARCHAR(128) NOT NULL,
    phone          VARCHAR(32)  NOT NULL,
    skill          VARCHAR(64)  NOT NULL,
    avatar         VARCHAR(255) NOT NULL DEFAULT '',
    is_online      TINYINT(1)   NOT NULL DEFAULT 0,
    wallet_balance INT          NOT NULL DEFAULT 0,
    rating         FLOAT        NOT NULL DEFAULT 0,
    review_count   INT          NOT NULL DEFAULT 0,
    created_at     TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    KEY idx_workers_online_skill (is_online, skill)
);

CREATE TABLE IF NOT EXISTS users (
    id         VARCHAR(36)  NOT NULL,
    name       VARCHAR(128) NOT NULL,
    phone      VARCHAR(32)  NOT NULL,
    role       VARCHAR(16)  NOT NULL,
    avatar     VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS worker_ledger (
    id          INT UNSIGNED NOT NULL AUTO_INCREMENT,
    worker_id   VARCHAR(36)  NOT NULL,
    job_id      VARCHAR(36)  NOT NULL,
    entry_type  VARCHAR(8)   NOT NULL,
    amount      INT          NOT NULL,
    description VARCHAR(255) NOT NULL DEFAULT '',
    created_at  TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    UNIQUE KEY idx_ledger_job_entry (job_id, entry_type),
    KEY idx_ledger_worker (worker_id)
);

CREATE TABLE IF NOT EXISTS platform_fee_config (
    id                      INT UNSIGNED NOT NULL,
    base_commission_percent FLOAT        NOT NULL DEFAULT 10,
    dynamic_multiplier      FLOAT        NOT NULL DEFAULT 1,
    is_system_free_mode     TINYINT(1)   NOT NULL DEFAULT 0,
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS outbox_jobs (
    id         INT UNSIGNED NOT NULL AUTO_INCREMENT,
    created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP    NULL     ON UPDATE CURRENT_TIMESTAMP,
    name       VARCHAR(64)  NOT NULL,
    args       JSON         NULL,
    state      INT          NOT NULL,
    retries    INT          NOT NULL DEFAULT 0,
    error      VARCHAR(255) NOT NULL DEFAULT '',
    not_before TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    KEY idx_outbox_state (state, not_before)
);

INSERT IGNORE INTO platform_fee_config (id) VALUES (1);
`
