// Package store writes closed-loop traces as JSON or CSV for plotting elsewhere.
package store
