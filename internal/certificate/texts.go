package certificate

import (
	"strings"

	"golang.org/x/text/language"
)

type texts struct {
	Header        string
	AwardedTo     string
	ForPublishing string
	InJournal     string
	Date          string
	Signed        string
	Verify        string
	ID            string
}

var translations = map[string]texts{
	"en": {
		Header:        "CERTIFICATE OF PUBLICATION",
		AwardedTo:     "This certificate is awarded to",
		ForPublishing: "for successfully publishing the article titled",
		InJournal:     "in the",
		Date:          "Date of Publication",
		Signed:        "Chief Editor",
		Verify:        "Scan to verify",
		ID:            "Certificate ID",
	},
	"uz": {
		Header:        "NASHR QILINGANLIK HAQIDA SERTIFIKAT",
		AwardedTo:     "Ushbu sertifikat taqdim etiladi:",
		ForPublishing: "quyidagi mavzudagi maqolani muvaffaqiyatli nashr etgani uchun:",
		InJournal:     "Jurnal:",
		Date:          "Nashr sanasi",
		Signed:        "Bosh Muharrir",
		Verify:        "Tekshirish uchun",
		ID:            "Sertifikat ID",
	},
	"ru": {
		Header:        "СЕРТИФИКАТ О ПУБЛИКАЦИИ",
		AwardedTo:     "Настоящий сертификат вручается",
		ForPublishing: "за успешную публикацию статьи на тему:",
		InJournal:     "в журнале:",
		Date:          "Дата публикации",
		Signed:        "Главный редактор",
		Verify:        "Сканируйте для проверки",
		ID:            "ID Сертификата",
	},
}

var (
	supported = []language.Tag{language.English, language.Uzbek, language.Russian}
	matcher   = language.NewMatcher(supported)
)

// MatchLanguage picks en, uz or ru for a language tag or an
// Accept-Language header value, defaulting to en.
func MatchLanguage(pref string) string {
	pref = strings.TrimSpace(pref)
	if pref == "" {
		return "en"
	}
	tags, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(tags) == 0 {
		return "en"
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return "en"
	}
	base, _ := supported[idx].Base()
	return base.String()
}
