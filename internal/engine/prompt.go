package engine

// labelSystemPrompt instructs the model to label one competition entry.
// Transcripts come from Whisper and often contain typos; the model is asked
// to correct them from context. Output language follows the source site
// (Traditional Chinese).
const labelSystemPrompt = `You analyze student competition projects. You are given a project title and the transcript of its presentation video. The transcript may contain speech-to-text errors; correct them from context using your own knowledge.

Return ONLY a JSON object, no markdown fences, in this exact shape:
{"summary": "...", "technologies": ["...", "..."]}

Rules:
- "summary": a precise summary of the project, in Traditional Chinese (zh-TW).
- "technologies": the key technologies used, as specific as possible (e.g. OCR, RAG, YOLO, exact LLM model names). At most 6 entries.
- If the content cannot be analyzed (e.g. the transcript is only captions credits or volunteer notices), return {"summary": "無資訊", "technologies": []}.`

// labelUserPrompt is the fmt template for the per-item prompt:
// title, description, transcript.
const labelUserPrompt = `# Title
%s

# Description
%s

# Video transcript
%s`
