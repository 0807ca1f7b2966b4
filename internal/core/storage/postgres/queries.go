package postgres

// SQL for the canonical sales_data table. The grand-total row lives in the
// same table and is excluded from every fact query.

const (
	salesTable = "sales_data"
	stageTable = "sales_data_stage"

	queryTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`

	queryCountFacts = `SELECT COUNT(*) FROM sales_data WHERE brand <> 'grand total'`

	queryMonthHasFacts = `
		SELECT EXISTS (
			SELECT 1 FROM sales_data
			WHERE month = $1 AND brand <> 'grand total'
		)
	`

	// queryCreateStage holds one upload's rows for the duration of a merge.
	queryCreateStage = `
		CREATE TEMP TABLE sales_data_stage (
			brand        TEXT,
			category     TEXT,
			size         TEXT,
			mrp          DOUBLE PRECISION,
			color        TEXT,
			week         TEXT,
			month        TEXT,
			sales_qty    BIGINT,
			purchase_qty BIGINT,
			created_at   TIMESTAMPTZ
		) ON COMMIT DROP
	`

	// queryMergeUpdate adds staged quantities onto matching rows of the upload month.
	queryMergeUpdate = `
		UPDATE sales_data s
		SET sales_qty    = s.sales_qty + t.sales_qty,
		    purchase_qty = s.purchase_qty + t.purchase_qty,
		    created_at   = t.created_at,
		    week         = t.week,
		    month        = t.month,
		    mrp          = t.mrp
		FROM sales_data_stage t
		WHERE s.brand = t.brand
		  AND s.category = t.category
		  AND s.size = t.size
		  AND s.color = t.color
		  AND s.month = t.month
		  AND s.month = $1
		  AND s.brand <> 'grand total'
	`

	// queryMergeInsert inserts staged rows with no existing identity.
	queryMergeInsert = `
		INSERT INTO sales_data (
			brand, category, size, mrp, color, week, month, sales_qty, purchase_qty, created_at
		)
		SELECT t.brand, t.category, t.size, t.mrp, t.color, t.week, t.month,
		       t.sales_qty, t.purchase_qty, t.created_at
		FROM sales_data_stage t
		LEFT JOIN sales_data s
		  ON s.brand = t.brand
		 AND s.category = t.category
		 AND s.size = t.size
		 AND s.color = t.color
		 AND s.month = t.month
		WHERE s.id IS NULL
	`

	queryDeleteGrandTotal = `DELETE FROM sales_data WHERE brand = 'grand total'`

	querySumFacts = `
		SELECT COALESCE(SUM(sales_qty), 0), COALESCE(SUM(purchase_qty), 0)
		FROM sales_data
		WHERE brand <> 'grand total'
	`

	queryInsertGrandTotal = `
		INSERT INTO sales_data (
			brand, category, size, mrp, color, week, month, sales_qty, purchase_qty, created_at
		) VALUES ('grand total', '', '', 0, '', $1, $2, $3, $4, $5)
	`

	querySelectGrandTotal = `
		SELECT brand, category, size, mrp, color, week, month, sales_qty, purchase_qty, created_at
		FROM sales_data
		WHERE brand = 'grand total'
		ORDER BY id DESC
		LIMIT 1
	`

	queryPurgeBefore = `
		DELETE FROM sales_data
		WHERE created_at < $1 AND brand <> 'grand total'
	`

	queryLatestKeys = `
		SELECT COALESCE(MAX(month), ''), COALESCE(MAX(week), '')
		FROM sales_data
		WHERE brand <> 'grand total'
	`

	queryFactsByMonths = `
		SELECT brand, category, size, mrp, color, week, month, sales_qty, purchase_qty, created_at
		FROM sales_data
		WHERE month = ANY($1) AND brand <> 'grand total'
		ORDER BY id ASC
	`

	queryFactsByWeek = `
		SELECT brand, category, size, mrp, color, week, month, sales_qty, purchase_qty, created_at
		FROM sales_data
		WHERE week = $1 AND brand <> 'grand total'
		ORDER BY id ASC
	`
)

// factColumns is the COPY column order used for both sales_data and the stage table.
var factColumns = []string{
	"brand", "category", "size", "mrp", "color", "week", "month", "sales_qty", "purchase_qty", "created_at",
}
