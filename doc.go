// Package churnboard is an employee attrition dashboard.
//
// Base tables are loaded once at startup (records), predicted by a trained
// classifier (features, model, predict) and filtered per session through
// record views (engine, dashboard). The HTTP API lives in server and the
// command line in cmd/churnboard.
//
//	store, _ := records.Open(ctx, opts, predictor, log)
//	sess := dashboard.NewSession(store, log)
//	_ = sess.ApplyEmployees(dashboard.Criteria{Departments: []string{"sales"}})
//	table := sess.EmployeeTable()
//
// Nothing in the filter path evaluates expressions or calls out of process;
// only classifier artifacts of the remote kind make network calls.
package churnboard
