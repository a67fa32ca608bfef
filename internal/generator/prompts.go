package generator

const questionSystem = `أنت معلم متخصص في تحفيظ القرآن الكريم. تكتب أسئلة مراجعة قصيرة ودقيقة باللغة العربية، وتلتزم بالنص القرآني حرفياً دون تغيير.`

const questionPrompt = `أنشئ سؤالاً واحداً لاختبار حفظ {{.ScopeLabel}}.
مستوى الصعوبة: {{.Level}}.
{{- if eq .Kind "reorder"}}
نوع السؤال: ترتيب الكلمات. ضع كلمات الآية في الحقل "words" بترتيب عشوائي، وضع الآية كاملة مرتبة في "answer".
{{- else}}
نوع السؤال: اختيار من متعدد. ضع أربعة خيارات في "options" أحدها هو الإجابة الصحيحة نصاً، وضع الإجابة الصحيحة في "answer".
{{- end}}
الآيات:
{{- range .Verses}}
[{{.Key}}] {{.Text}}
{{- end}}

أجب بكائن JSON فقط بالحقول: "type" ("{{.Kind}}")، "question"، "options"، "words"، "answer"، "explanation".`

const tafsirSystem = `أنت عالم بالتفسير. تكتب تفسيراً ميسراً موجزاً باللغة العربية الفصحى.`

const tafsirPrompt = `اكتب تفسيراً ميسراً لا يزيد على ثلاث جمل للآية {{.Verse.Key}} من سورة {{.Chapter}}:
{{.Verse.Text}}`
