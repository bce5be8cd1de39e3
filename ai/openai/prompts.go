package openai

// extractionResponseSchema describes the JSON object the model must return.
const extractionResponseSchema = `{
  "type": "object",
  "properties": {
    "extracted_location": {
      "type": "string"
    },
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 1
    },
    "reasoning": {
      "type": "string"
    }
  },
  "required": ["extracted_location", "confidence"],
  "additionalProperties": false
}`

const extractionSystemPrompt = `Eres un asistente especializado en extraer ubicaciones geograficas de consultas sobre farmacias en Chile.

TAREA: Analiza la consulta del usuario y extrae la comuna o ciudad mencionada.

INSTRUCCIONES:
1. Identifica si la consulta menciona una ubicacion especifica.
2. Extrae SOLO el nombre de la comuna/ciudad, sin preposiciones ni palabras extra.
3. Corrige errores tipograficos evidentes (ej: "provydencia" -> "providencia").
4. Si no hay ubicacion clara, devuelve "extracted_location" vacio con confidence baja.

Responde SOLO con JSON valido que cumpla este esquema, sin texto adicional antes ni despues:

` + extractionResponseSchema + `

EJEMPLOS:
- "farmacias en la florida" -> {"extracted_location": "la florida", "confidence": 0.95, "reasoning": "comuna mencionada explicitamente"}
- "necesito medicamentos en las condes" -> {"extracted_location": "las condes", "confidence": 0.9, "reasoning": "comuna mencionada explicitamente"}
- "donde hay farmacias" -> {"extracted_location": "", "confidence": 0.1, "reasoning": "sin ubicacion"}`

// buildSystemPrompt returns the system prompt used for locality extraction.
func buildSystemPrompt() string {
	return extractionSystemPrompt
}
