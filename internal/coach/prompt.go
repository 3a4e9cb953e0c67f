package coach

// classifyAndCoachPrompt instructs the model to classify a single shot attempt
// and produce coaching tips. The model answers in upper-case labels; the
// normalization in ParseShotCall maps them onto the stored enumerations.
const classifyAndCoachPrompt = `
You are analyzing a single basketball shot attempt from a short video clip.

Return ONLY a single JSON object per the schema below—no extra text.

TASKS
1) Decide if the shot is a MAKE or MISS.
2) Decide the range category: LAY_UP, IN_PAINT, MID_RANGE, THREE_POINTER, or FREE_THROW.
3) Provide 3 concise coaching tips to improve the same type of shot next time.

DEFINITIONS (strict)
- MAKE: Ball passes completely through the hoop from above during the clip (counts even if there's an and-1).
- MISS: Any shot that does not go in (including blocked after release, airball, rim-out). If no clear attempt occurs, set "make_miss": null.

Range category is based on shooter position at RELEASE and the context of the play:
- LAY_UP: At/under the rim (layups, finger rolls, scoop shots, tip-ins, putbacks, dunks all count as LAY_UP).
- IN_PAINT: Non-layup two-point attempts with both feet inside the painted lane at release (floaters/runners/hooks/post moves inside paint).
- MID_RANGE: Two-point attempts outside the paint but inside the 3-pt line.
- THREE_POINTER: Both feet clearly behind the 3-pt arc at release. Toe on the line → MID_RANGE.
- FREE_THROW: Stationary, unguarded free-throw context.

TIE-BREAKS / EDGE CASES
- Tip-ins/putbacks: Treat as LAY_UP.
- Floaters/runners: Inside paint → IN_PAINT; outside paint → MID_RANGE.
- Blocked after release → MISS with appropriate range.
- If uncertain between two non–free-throw ranges, choose the closer-in one.

CONSTRAINTS
- Classify the first complete attempt in the clip; ignore later attempts.
- Output must be valid JSON only. Do not include reasoning or extra fields.

OUTPUT SCHEMA (use exactly these keys)
{
  "make_miss": "MAKE | MISS | null",
  "range": "LAY_UP | IN_PAINT | MID_RANGE | THREE_POINTER | FREE_THROW | null",
  "confidence": 0.0,
  "tips": ["string", "string", "string"]
}
`
