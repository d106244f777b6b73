// Package reserved holds the identifiers of the system-reserved rows that
// anchor placeholder reporting lines. Listings filter these out; the bulk
// ingestion path parents auto-created managers under them.
package reserved

const (
	// RootEmployeeNumber is the sentinel employee every placeholder
	// manager reports to.
	RootEmployeeNumber = "100000000"

	// OrgUnitID is the id shared by the reserved role and the reserved
	// department that placeholder managers are filed under.
	OrgUnitID = 100

	// JobCode is the job code assigned to placeholder managers.
	JobCode = "dummy100"
)

// IsRootEmployee reports whether the employee number is the reserved root.
func IsRootEmployee(employeeNumber string) bool {
	return employeeNumber == RootEmployeeNumber
}
