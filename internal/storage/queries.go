package storage

const (
	sqliteInsertTransaction = `INSERT INTO transactions (
    id, user_id, occurred_at, description, amount,
    currency_code, bank_account_id, category_id, subcategory_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqliteSelectTransactions = `SELECT id, user_id, occurred_at, description, amount,
    currency_code, bank_account_id, category_id, subcategory_id
FROM transactions`

	postgresInsertTransaction = `INSERT INTO transactions (
    user_id, occurred_at, description, amount,
    currency_code, bank_account_id, category_id, subcategory_id
) VALUES ($1, $2::text::date, $3, $4::text::numeric, $5, $6, $7, $8)
RETURNING id::text`

	postgresDeleteTransactions = `DELETE FROM transactions
WHERE user_id = $1 AND id::text = ANY($2::text[])`

	postgresSelectTransactions = `SELECT id::text, user_id, to_char(occurred_at, 'YYYY-MM-DD'), description,
    amount::text, currency_code, bank_account_id, category_id, subcategory_id
FROM transactions
WHERE user_id = $1 AND id::text = ANY($2::text[])
ORDER BY occurred_at, id`
)
