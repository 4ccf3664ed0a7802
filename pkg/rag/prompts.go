package rag

// Prompt templates and the fixed fallback answers. The fallback strings are
// part of the API surface: clients match on them, so they never change
// between releases.

const groundedPromptFmt = `You are a medical AI assistant that answers questions strictly from the provided medical literature.

Rules:
1. Use only information contained in the literature excerpts below.
2. Do not provide a diagnosis or treatment recommendation. Summarize what the literature reports.
3. If the literature does not address part of the question, say explicitly that it is not covered by the provided sources.
4. Cite the PMIDs of the sources you relied on at the end of your answer.
5. Remind the reader to consult a healthcare professional for medical decisions.

Medical literature:

%s

Question: %s

Answer:`

const ungroundedPromptFmt = `You are a medical AI assistant. Answer the question from your general medical knowledge.

Rules:
1. Provide general medical information only, never a diagnosis or treatment recommendation.
2. State clearly when the evidence is uncertain or contested.
3. Remind the reader to consult a healthcare professional for medical decisions.

Question: %s

Answer:`

const translationPromptFmt = `Translate the following medical question into English using precise medical terminology. If the question is already in English, repeat it unchanged. Reply with only the translated question, nothing else.

Question: %s
English:`

// noLiteratureContext is the context block used when assembly receives an
// empty result set.
const noLiteratureContext = "No relevant medical literature was found."

// NoResultsAnswer is returned when retrieval finds nothing above the
// similarity threshold.
const NoResultsAnswer = "No relevant medical literature was found for your question. Please try again with different keywords."

// TimeoutAnswer is returned when generation exceeds the configured deadline.
const TimeoutAnswer = "Answer generation timed out. Please retry with a shorter question."

// ConnectionAnswer is returned when the generation backend is unreachable.
const ConnectionAnswer = "Cannot reach the generation service. Check that the Ollama server is running."
