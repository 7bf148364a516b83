package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	FormFieldsDetectDescription = `Run the full field detection pipeline over one page of collaborator output.

**When to use:** You already have OCR labels and field candidate boxes for a page and want the finished field list: deduplicated, matched, refined, and sorted in reading order.

**Why it's useful:** Handles every stage in one call, including noise-label filtering, overlapping-detection cleanup, spatial label-field pairing, and boundary validation against the page dimensions.

**Examples:**
• Finish a detection run: "Detect fields for page 3 using the OCR and box detector output"
• Re-run with tuned thresholds: "Process the saved page payload after lowering the commit distance"

**Common workflows:**
1. Scanned Form Processing: OCR page → detect boxes → form_fields_detect → fillable field list
2. Threshold Tuning: form_fields_detect → inspect stats → adjust flags → re-run

**Best practices:** Declare the true raster dimensions in the payload; out-of-range boxes are dropped, and refinement clamps every field to the page.`

	FormFieldsAssociateDescription = `Pair text labels with field candidates without boundary refinement.

**When to use:** You want to inspect the raw label-field pairings and their distances before any snapping or final validation changes the boxes.

**Why it's useful:** Exposes the matcher's decisions directly, including which labels and candidates were left unmatched and why records were dropped, which makes threshold problems easy to diagnose.

**Examples:**
• Debug a missed pairing: "Associate labels and candidates for page 2 and check the distances"
• Audit match quality: "Report unmatched labels across the document before refinement"

**Common workflows:**
1. Match Debugging: form_fields_associate → inspect distances → tune pairgate/commitdistance
2. Quality Audit: form_fields_associate → count unmatched → flag pages for manual review

**Best practices:** Pairs carry the raw label text; the detect tool applies text cleanup when it builds field names.`

	FormFieldsFromPDFDescription = `Detect form fields in a PDF file using its AcroForm widgets and text layer.

**When to use:** The document is a digital PDF with interactive form fields, so candidates and labels can come straight from the file instead of OCR.

**Why it's useful:** AcroForm widget rectangles are exact, and the text layer supplies high-confidence labels, so results are far more reliable than image-based detection when the structure is available.

**Examples:**
• Digital application form: "Detect the fields in application.pdf page 1"
• Coordinate export: "Get pixel bounding boxes for every field in tax-form.pdf at 300 DPI"

**Common workflows:**
1. Digital Form Processing: form_fields_from_pdf → field list with pixel coordinates
2. Hybrid Processing: try form_fields_from_pdf → if empty, fall back to OCR and form_fields_detect

**Best practices:** Coordinates are pixels at the configured DPI with a top-left origin; scanned PDFs without AcroForm data yield no candidates, so fall back to the detect tool.`

	ServerInfoDescription = `Get server information, available tools, active tuning, and usage guidance.

**When to use:** Starting a session, or confirming which distance cutoffs and DPI the server is running with before interpreting results.

**Why it's useful:** Reports the active configuration so coordinate values and match decisions can be reproduced outside the server.

**Examples:**
• Session setup: "Show the available tools and the active pair gate"
• Reproducibility: "Record the DPI and thresholds used for this batch"

**Common workflows:**
1. Session Initialization: fieldkit_server_info → pick the right tool → process pages

**Best practices:** Run once per session; all tuning is also visible in the startup flags and environment.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"form_fields_detect":    FormFieldsDetectDescription,
	"form_fields_associate": FormFieldsAssociateDescription,
	"form_fields_from_pdf":  FormFieldsFromPDFDescription,
	"fieldkit_server_info":  ServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
