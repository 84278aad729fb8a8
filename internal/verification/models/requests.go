package models

// VerifyRequest is the identity verification submission. The back image is
// accepted for forward compatibility but currently unused by the decision
// logic.
type VerifyRequest struct {
	SelfieImage  string `json:"selfie_image"`
	RGFrontImage string `json:"rg_front_image"`
	RGBackImage  string `json:"rg_back_image,omitempty"`
}

// Validate reports the missing required fields, in a stable order.
func (r *VerifyRequest) Validate() []string {
	var missing []string
	if r.SelfieImage == "" {
		missing = append(missing, "selfie_image")
	}
	if r.RGFrontImage == "" {
		missing = append(missing, "rg_front_image")
	}
	return missing
}
