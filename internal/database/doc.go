// Package database opens the read-only PostgreSQL pool used for LIMS lookups.
//
// Every session on the pool runs with default_transaction_read_only, so a
// QC run can never write to LIMS.
package database
