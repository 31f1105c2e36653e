package entities

// DoctorLocation is one hospital/branch pairing a doctor practises at.
// BranchID is empty when the doctor is listed only at hospital level.
type DoctorLocation struct {
	HospitalID   string `json:"hospitalId"`
	HospitalName string `json:"hospitalName"`
	HospitalSlug string `json:"hospitalSlug,omitempty"`
	BranchID     string `json:"branchId,omitempty"`
	BranchName   string `json:"branchName,omitempty"`
	Cities       []City `json:"cities"`
}

// ExtendedDoctor is a doctor merged across every appearance in the tree
type ExtendedDoctor struct {
	Doctor
	BaseID      string           `json:"baseId"`
	Locations   []DoctorLocation `json:"locations"`
	Departments []Department     `json:"departments"`
}

// TreatmentLocation is one branch offering a treatment, with the price and
// department context that apply there.
type TreatmentLocation struct {
	HospitalID   string       `json:"hospitalId"`
	HospitalName string       `json:"hospitalName"`
	HospitalSlug string       `json:"hospitalSlug,omitempty"`
	BranchID     string       `json:"branchId,omitempty"`
	BranchName   string       `json:"branchName,omitempty"`
	Cities       []City       `json:"cities"`
	Departments  []Department `json:"departments"`
	Cost         string       `json:"cost"`
}

// ExtendedTreatment is a treatment merged across every branch offering it
type ExtendedTreatment struct {
	Treatment
	BranchesAvailableAt []TreatmentLocation `json:"branchesAvailableAt"`
	Departments         []Department        `json:"departments"`
}

// MatchedBranch is a branch returned by the filter engine together with its owner
type MatchedBranch struct {
	Branch
	HospitalID   string `json:"hospitalId"`
	HospitalName string `json:"hospitalName"`
	HospitalSlug string `json:"hospitalSlug"`
	HospitalLogo string `json:"hospitalLogo,omitempty"`
}
