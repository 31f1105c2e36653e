package entities

// PriceVaries is shown wherever a treatment carries no explicit cost.
const PriceVaries = "Price Varies"

// City is a location a branch operates in
type City struct {
	ID       string `json:"id"`
	CityName string `json:"cityName"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Department groups specializations (e.g. Cardiology, Orthopaedics)
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Accreditation is a quality certification held by a branch (JCI, NABH, ...)
type Accreditation struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image string `json:"image,omitempty"`
}

// Treatment is a procedure offered by one or more branches
type Treatment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Cost        string `json:"cost,omitempty"`
	Image       string `json:"image,omitempty"`
	Popular     bool   `json:"popular,omitempty"`
}

// Specialization is a clinical speciality; it may enumerate the treatments it
// covers and the departments it belongs to.
type Specialization struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	IsTreatment bool         `json:"isTreatment,omitempty"`
	Department  []Department `json:"department"`
	Treatments  []Treatment  `json:"treatments"`
}

// Doctor is a practitioner who may appear under several branches
type Doctor struct {
	ID              string           `json:"id"`
	DoctorName      string           `json:"doctorName"`
	Specialization  []Specialization `json:"specialization"`
	Qualification   string           `json:"qualification,omitempty"`
	ExperienceYears int              `json:"experienceYears,omitempty"`
	Designation     string           `json:"designation,omitempty"`
	AboutDoctor     string           `json:"aboutDoctor,omitempty"`
	ProfileImage    string           `json:"profileImage,omitempty"`
	Popular         bool             `json:"popular,omitempty"`
}

// Branch is a physical hospital location
type Branch struct {
	ID              string            `json:"id"`
	BranchName      string            `json:"branchName"`
	Address         string            `json:"address,omitempty"`
	Description     string            `json:"description,omitempty"`
	Image           string            `json:"image,omitempty"`
	City            []City            `json:"city"`
	Specialty       []Specialization  `json:"specialty"`
	Accreditation   []Accreditation   `json:"accreditation"`
	Doctors         []Doctor          `json:"doctors"`
	Specialists     []Specialization  `json:"specialists"`
	Treatments      []Treatment       `json:"treatments"`
	TreatmentCosts  map[string]string `json:"treatmentCosts,omitempty"`
	TotalBeds       int               `json:"totalBeds,omitempty"`
	NoOfDoctors     int               `json:"noOfDoctors,omitempty"`
	YearEstablished int               `json:"yearEstablished,omitempty"`
	IsStandalone    bool              `json:"isStandalone,omitempty"`
}

// Hospital groups branches. Doctors, Treatments and Specialists are derived
// unions over the hospital's own lists and every child branch.
type Hospital struct {
	ID               string           `json:"id"`
	HospitalName     string           `json:"hospitalName"`
	Slug             string           `json:"slug"`
	Description      string           `json:"description,omitempty"`
	Logo             string           `json:"logo,omitempty"`
	YearEstablished  int              `json:"yearEstablished,omitempty"`
	Specialty        []Specialization `json:"specialty"`
	Branches         []Branch         `json:"branches"`
	Doctors          []Doctor         `json:"doctors"`
	Treatments       []Treatment      `json:"treatments"`
	Specialists      []Specialization `json:"specialists"`
	Accreditations   []Accreditation  `json:"accreditations"`
	IsStandalone     bool             `json:"isStandalone,omitempty"`
	OriginalBranchID string           `json:"originalBranchId,omitempty"`
}
