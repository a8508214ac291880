package formd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	submissionTSV = "ACCESSIONNUMBER\tFILE_NUM\tFILING_DATE\tSUBMISSIONTYPE\n" +
		"0001-24-000001\t021-1\t15-JAN-2024\tD\n" +
		"0001-24-000002\t021-2\t2023-06-30\tD/A\n"

	issuersTSV = "ACCESSIONNUMBER\tIS_PRIMARYISSUER_FLAG\tENTITYNAME\tSTREET1\tSTREET2\tCITY\tSTATEORCOUNTRY\tZIPCODE\tISSUERPHONENUMBER\tENTITYTYPE\tYEAROFINC_VALUE_ENTERED\n" +
		"0001-24-000001\tNO\tCo-Issuer Fund LP\t1 Side St\t\tAustin\tTX\t78701\t512-555-0100\tLimited Partnership\t2019\n" +
		"0001-24-000001\tYES\tAcme Robotics, Inc.\t100 Main St\tSuite 5\tBoston\tMA\t02110\t617-555-0100\tCorporation\t2015.0\n" +
		"0001-24-000002\tYES\tBeta Bio LLC\t2 Lab Way\tNaN\tSan Diego\tCA\t92121\t\tLimited Liability Company\tNA\n" +
		"0001-24-000003\tYES\tGamma Co\t3 Elm\t\tSeattle\tWA\t98101\t\tCorporation\t\n"

	offeringTSV = "ACCESSIONNUMBER\tINDUSTRYGROUPTYPE\tISAMENDMENT\tTOTALOFFERINGAMOUNT\tTOTALAMOUNTSOLD\tTOTALREMAINING\tTOTALNUMBERALREADYINVESTED\tSALE_DATE\n" +
		"0001-24-000001\tOther Technology\tN\t10000000\t5000000\t5000000\t12\t2023-12-01\n" +
		"0001-24-000002\tBiotechnology\tY\tIndefinite\t1,500,000\tIndefinite\t3.0\t\n" +
		"0001-24-000001\tDuplicate Row\tN\t1\t1\t0\t1\t\n" +
		"0001-24-000009\tOrphan Offering\tN\t100\t100\t0\t1\t\n" +
		"0001-24-000003\tOther\tN\t\t\t\t\t\n"

	relatedTSV = "ACCESSIONNUMBER\tRELATEDPERSON_SEQ_KEY\tFIRSTNAME\tMIDDLENAME\tLASTNAME\tCITY\tSTATEORCOUNTRY\tRELATIONSHIP_1\tRELATIONSHIP_2\tRELATIONSHIP_3\n" +
		"0001-24-000001\t1\tJane\tQ\tDoe\tBoston\tMA\tExecutive Officer\tDirector\t\n" +
		"0001-24-000002\t1\tSam\t\tLee\tSan Diego\tCA\tPromoter\t\t\n" +
		"0001-24-000001\t2\tJohn\t\tRoe\tCambridge\tMA\tDirector\t\t\n" +
		"0001-24-000001\t3\t\t\t\t\t\t\t\t\n"
)

// writePeriod writes a complete period fixture into dir. Files named in
// skip are omitted.
func writePeriod(t *testing.T, dir string, skip ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	files := map[string]string{
		FileSubmission:     submissionTSV,
		FileIssuers:        issuersTSV,
		FileOffering:       offeringTSV,
		FileRelatedPersons: relatedTSV,
	}
	for name, content := range files {
		if contains(skip, name) {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
